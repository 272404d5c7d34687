package interview

// Command is a control action a phase agent can request through a tool call.
type Command int

const (
	CommandNone Command = iota
	CommandAdvance
	CommandEndNormally
	CommandEndEarly
)

var commandTools = map[Command]struct {
	name string
	desc string
}{
	CommandAdvance:     {"move_to_next_phase", "Call when you have covered all questions in this phase."},
	CommandEndNormally: {"end_interview", "End the interview session. Call this after your farewell message."},
	CommandEndEarly:    {"early_exit", "Use if the candidate wants to leave early."},
}

// ToolName is the function name exposed to the model.
func (c Command) ToolName() string {
	return commandTools[c].name
}

// Description tells the model when to call the tool.
func (c Command) Description() string {
	return commandTools[c].desc
}

func (c Command) String() string {
	if name := c.ToolName(); name != "" {
		return name
	}
	return "none"
}

// ParseCommand maps a tool name back to its command.
func ParseCommand(name string) (Command, bool) {
	for cmd, tool := range commandTools {
		if tool.name == name {
			return cmd, true
		}
	}
	return CommandNone, false
}
