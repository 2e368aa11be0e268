// Package domain contains the core learning entities of the application:
// molecular structures and their validation gate, quiz questions, curriculum
// modules, and the user's statistics. It is independent of the content oracle,
// the HTTP surface, and any storage mechanism.
package domain
