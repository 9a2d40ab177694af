// Package backend talks to the command-execution service behind the copilot.
//
// The service accepts POST /chat with {"message": "..."} and answers with the
// agent that handled the command (taskType, task or agent) and a response
// that may be a string or a structured object, or with {"error": "..."}.
// Client.Execute normalizes these shapes into a Result and routes every call
// through a circuit breaker so a dead backend fails fast.
package backend
