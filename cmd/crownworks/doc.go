// Command crownworks is the operator CLI. It manages the configuration
// file, enqueues media jobs, edits the content mirror, and reports queue
// status either from the running daemon or directly from the database.
package main
