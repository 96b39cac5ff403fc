package constants

// Messages printed by jqctl.

// Config messages
const (
	// MsgConfigLoadError is the error message when configuration loading fails.
	MsgConfigLoadError = "failed to load configuration: %w"

	// MsgConfigValidationError is the message when configuration validation fails.
	MsgConfigValidationError = "❌ Configuration validation failed:\n"

	// MsgConfigValid is the message when configuration is loaded and validated.
	MsgConfigValid = "✅ Configuration is valid: %s\n"

	// MsgConfigValidatePrefix is the prefix for configuration validation errors.
	MsgConfigValidatePrefix = "  - %v\n"
)

// Queue messages
const (
	// MsgQueueAdded is printed after a queue is created.
	MsgQueueAdded = "✅ Queue '%s' added (id %d)\n"

	// MsgQueueModified is printed after a queue definition is replaced.
	MsgQueueModified = "✅ Queue '%s' modified\n"

	// MsgQueueDeleted is printed after a queue is deleted.
	MsgQueueDeleted = "✅ Queue '%s' deleted\n"

	// MsgQueueSuspended is printed after a suspend request.
	MsgQueueSuspended = "⏸ Queue '%s' suspend requested, status: %s\n"

	// MsgQueueResumed is printed after a resume request.
	MsgQueueResumed = "▶ Queue '%s' resume requested, status: %s\n"

	// MsgQueuesNotFound is printed when the daemon has no queues.
	MsgQueuesNotFound = "No queues found."
)

// Job messages
const (
	// MsgJobScheduled is printed after a job is scheduled.
	MsgJobScheduled = "✅ Job %d scheduled in queue '%s', status: %s\n"

	// MsgJobCancelled is printed after a cancel request.
	MsgJobCancelled = "✅ Job %d cancel requested, status: %s\n"

	// MsgJobsNotFound is printed when a queue has no jobs.
	MsgJobsNotFound = "No jobs found."

	// MsgJobsTotal is the message showing the total count of jobs.
	MsgJobsTotal = "Total: %d job(s)\n"
)

// Simulator messages
const (
	// MsgSimListening is printed when the daemon simulator starts.
	MsgSimListening = "Job queue simulator listening on %s (Ctrl+C to stop)\n"
)
