package constants

const (
	// DefaultComponent is the component name of application code.
	DefaultComponent = "application"
	// DefaultFileName is the live file name used when none is configured.
	DefaultFileName = "info.log"
	// DefaultNameFormat names rotated files of application writers.
	DefaultNameFormat = "[application-]YYYYMMDD[.log]"
	// ComponentNameFormat names rotated files of lazily created component writers.
	ComponentNameFormat = "[info-]YYYYMMDD[.log]"
	// DefaultLogRoot is used when HOME is not set.
	DefaultLogRoot = "/home/www/logs"
	// AuditDirName is the directory below the log root holding the audit log.
	AuditDirName = "cutlog"
	// AuditFileName is the audit log file name.
	AuditFileName = "log_cleaner.log"
	// LiveFileExtension is appended to the prefix to build the live file name.
	LiveFileExtension = ".log"
)

// Environment variable keys.
const (
	// EnvPrefix prefixes every configuration variable.
	EnvPrefix = "CUTLOG"
	// WorkerIndexEnv carries the zero-based index of this worker process.
	WorkerIndexEnv = "CUTLOG_WORKER_INDEX"
	// LegacyWorkerIndexEnv is honoured when WorkerIndexEnv is unset (pm2 cluster mode).
	LegacyWorkerIndexEnv = "NODE_APP_INSTANCE"
)
