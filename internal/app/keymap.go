package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyStop        = "s"
	KeyCancel      = "c"
	KeyRetry       = "r"
	KeyBrowse      = "b"
	KeyMarker      = "m"
	KeyNewType     = "n"
	KeySpeakerTag  = "t"
	KeyCycleSpkr   = "p"
	KeyDelete      = "x"
	KeyEdit        = "e"
	KeySave        = "w"
	KeyTab         = "tab"
	KeyEnter       = "enter"
	KeyEsc         = "esc"
	KeyJ           = "j"
	KeyK           = "k"
	KeySeekBack    = ","
	KeySeekForward = "."
)
