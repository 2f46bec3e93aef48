package shared

type ServerConfig struct {
	Sqlite      SqliteConfig      `mapstructure:"sqlite" validate:"required"`
	Phonebook   PhonebookConfig   `mapstructure:"phonebook" validate:"required"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Google      GoogleConfig      `mapstructure:"google"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type PhonebookConfig struct {
	PrivateKeyPem              string         `mapstructure:"privateKeyPem" validate:"required"`
	URLSigningSecret           string         `mapstructure:"urlSigningSecret" validate:"required,min=16"`
	SessionMaxAgeInMinutes     int            `mapstructure:"sessionMaxAgeInMinutes" validate:"min=1"`
	SignedURLLifespanInMinutes int            `mapstructure:"signedURLLifespanInMinutes" validate:"min=0"`
	SecureCookies              bool           `mapstructure:"secureCookies"`
	Cron                       CronConfig     `mapstructure:"cron" validate:"required"`
	Listener                   ListenerConfig `mapstructure:"listener" validate:"required"`
}

type MaintenanceConfig struct {
	OrphanSweepSchedule     string `mapstructure:"orphanSweepSchedule"`
	RevocationPurgeSchedule string `mapstructure:"revocationPurgeSchedule"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	Bucket                    string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}
