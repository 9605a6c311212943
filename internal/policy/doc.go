// Package policy holds the task lifecycle and authorization rules: who may
// read, create, modify, assign and transition a task, what the resulting
// state is, and which users are notified about it.
//
// Everything here is pure. The caller identity is always an explicit
// argument and no function performs I/O, so handlers and the service layer
// share one copy of each rule instead of repeating it per endpoint.
package policy
