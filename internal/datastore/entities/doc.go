// Package entities defines the data model of the visit organizer.
//
// # Current shape
//
//   - Nursery: aggregate root for one facility, owns its visit sessions
//   - VisitSession: one planned or completed visit with its questions and insights
//   - Question: a single question with an optional free-text answer
//   - Template: a named, ordered list of question texts
//
// # Legacy shape
//
//   - QuestionList: the flat record stored before nurseries existed. One QuestionList
//     corresponds to one VisitSession plus the name of its nursery.
//
// All entities are plain values. Code that changes an entity builds a new value and
// never writes through a shared slice.
package entities
