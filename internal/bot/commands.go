package bot

// Slash commands understood by the bot.
const (
	CommandStart       = "/start"
	CommandHelp        = "/help"
	CommandCancel      = "/cancel"
	CommandPanel       = "/panel"
	CommandBroadcast   = "/broadcast"
	CommandAddEpisode  = "/add_episode"
	CommandAddAdmin    = "/add_admin"
	CommandRemoveAdmin = "/remove_admin"
)
