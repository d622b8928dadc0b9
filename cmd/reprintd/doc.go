// Command reprintd is the re-upload detection worker and its operator CLI.
// The run subcommand consumes chunk tasks from the broker; submit cuts a
// local video into chunks, uploads them, and enqueues the tasks; jobs and
// status inspect the job store.
package main
