// Package generation defines the boundary between the application core and
// the external content oracle, the AI/LLM service (Gemini) that authors
// molecule graphs, quizzes, reaction walkthroughs, study guides and tutor
// replies. The Generator interface abstracts the service so the core can be
// exercised without network access, and ValidateShape checks untrusted
// payloads against JSON schemas before they are decoded.
package generation
