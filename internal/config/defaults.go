package config

const (
	defaultLogDir              = "~/.local/share/courier/logs"
	defaultManifestPath        = "~/.config/courier/templates.yml"
	defaultRootName            = "primary"
	defaultDeliveryStatus      = "rfd"
	defaultDeliveredStatus     = "fin"
	defaultProjectCodeField    = "sg_projectcode"
	defaultTrackerTimeout      = 15
	defaultDeliveryMode        = "hardlink"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultQueuePollInterval   = 5
	defaultTrackerPollInterval = 60
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tracker: Tracker{
			DeliveryStatus:   defaultDeliveryStatus,
			DeliveredStatus:  defaultDeliveredStatus,
			ProjectCodeField: defaultProjectCodeField,
			RequestTimeout:   defaultTrackerTimeout,
		},
		Templates: Templates{
			ManifestPath: defaultManifestPath,
			DefaultRoot:  defaultRootName,
		},
		Roots: map[string]string{},
		Delivery: Delivery{
			Mode: defaultDeliveryMode,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			TrackerPollInterval: defaultTrackerPollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Delivery:       true,
			Queue:          true,
			Errors:         true,
		},
	}
}
