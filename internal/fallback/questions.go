// Package fallback provides the deterministic content used whenever the external
// assessment service is unavailable: a fixed question bank, a heuristic answer
// scorer, a template summary, and regex-based contact extraction.
package fallback

import "github.com/jonathan/interview-assistant/internal/types"

var questionBank = []types.Question{
	{
		ID:         "q1",
		Text:       "What is React and what are its main advantages for building user interfaces? How does it differ from traditional DOM manipulation?",
		Difficulty: types.DifficultyEasy,
		TimeLimit:  50,
		Category:   "React Fundamentals",
	},
	{
		ID:         "q2",
		Text:       "Explain the difference between let, const, and var in JavaScript. When would you use each in a React/Node.js application?",
		Difficulty: types.DifficultyEasy,
		TimeLimit:  50,
		Category:   "JavaScript Fundamentals",
	},
	{
		ID:         "q3",
		Text:       "How would you implement state management in a large React application? Discuss Redux Toolkit, Context API, and Zustand for a full-stack React/Node.js project.",
		Difficulty: types.DifficultyMedium,
		TimeLimit:  90,
		Category:   "React State Management",
	},
	{
		ID:         "q4",
		Text:       "Explain how you would build a RESTful API using Node.js and Express. Include middleware, error handling, and database integration.",
		Difficulty: types.DifficultyMedium,
		TimeLimit:  90,
		Category:   "Node.js Backend",
	},
	{
		ID:         "q5",
		Text:       "Design a full-stack architecture for a real-time chat application using React, Node.js, and WebSockets. Consider performance, scalability, and data consistency.",
		Difficulty: types.DifficultyHard,
		TimeLimit:  150,
		Category:   "Full-Stack Architecture",
	},
	{
		ID:         "q6",
		Text:       "Implement a custom React hook for managing complex form validation with async validation rules. Show how you would integrate it with a Node.js backend API.",
		Difficulty: types.DifficultyHard,
		TimeLimit:  150,
		Category:   "React Advanced + Node.js Integration",
	},
}

// Questions returns a fresh copy of the fixed six-question bank (q1..q6).
func Questions() []types.Question {
	out := make([]types.Question, len(questionBank))
	copy(out, questionBank)
	return out
}
