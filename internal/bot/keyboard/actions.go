package keyboard

// Action is the stable id carried in callback data and resolved from menu labels.
// UI text never takes part in dispatch.
type Action string

const (
	ActionSearch     Action = "search"
	ActionSearchName Action = "search_name"
	ActionAll        Action = "all"
	ActionTitle      Action = "title"
	ActionEpisode    Action = "ep"
	ActionPage       Action = "page"
	ActionVIP        Action = "vip"
	ActionShop       Action = "shop"
	ActionBalance    Action = "balance"
	ActionHelp       Action = "help"
	ActionPanel      Action = "panel"
	ActionAddTitle   Action = "add_title"
	ActionAddEpisode Action = "add_episode"
	ActionBroadcast  Action = "broadcast"
	ActionManage     Action = "manage"
	ActionSetBalance Action = "setbal"
	ActionBan        Action = "ban"
	ActionUnban      Action = "unban"
	ActionStatus     Action = "status"
	ActionSettings   Action = "settings"
	ActionToggle     Action = "toggle"
	ActionVIPToggle  Action = "vip_toggle"
	ActionClose      Action = "close"
	ActionNoop       Action = "noop"
	ActionBack       Action = "back"
	ActionCancel     Action = "cancel"
)

// Page directions carried by ActionPage.
const (
	DirNext = "next"
	DirBack = "back"
)
