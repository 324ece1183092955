package domain

const (
	CommandTypeCommand = "command"

	// DefaultParameter is sent with commands that take no argument.
	DefaultParameter = "default"
)

const (
	CommandTurnOn              = "turnOn"
	CommandTurnOff             = "turnOff"
	CommandToggle              = "toggle"
	CommandPress               = "press"
	CommandSetBrightness       = "setBrightness"
	CommandSetColorTemperature = "setColorTemperature"
)

// Command is the envelope posted to a device's commands endpoint.
type Command struct {
	CommandType string `json:"commandType"`
	Command     string `json:"command"`
	Parameter   any    `json:"parameter"`
}

func NewCommand(name string, parameter any) Command {
	return Command{
		CommandType: CommandTypeCommand,
		Command:     name,
		Parameter:   parameter,
	}
}
