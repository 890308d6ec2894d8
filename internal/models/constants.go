package models

const (
	// SourceTextLimit caps the chunk text echoed back in citations.
	SourceTextLimit = 200

	// NoResultsAnswer is returned when the store has nothing to retrieve.
	NoResultsAnswer = "No relevant documents found. Please upload documents first."

	// LocalAnswerPrefix and LocalAnswerBudget shape the answer built without
	// any remote generator configured.
	LocalAnswerPrefix = "Based on the context: "
	LocalAnswerBudget = 500

	// DegradedAnswerPrefix and DegradedAnswerBudget shape the answer built
	// when the remote generator is configured but failing.
	DegradedAnswerPrefix = "Based on the documents: "
	DegradedAnswerBudget = 300
)

var AnswerPromptTemplate = `You are a helpful assistant. Answer the question based on the provided context.

Context:
%s

Question: %s

Answer:`
