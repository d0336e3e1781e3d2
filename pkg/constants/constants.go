package constants

const (
	AppName      = "pitchside"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "PITCHSIDE"
)
