package prompt

import "context"

const frontWindowScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	try
		return name of front window of frontApp
	on error
		return name of frontApp
	end try
end tell`

func ActiveWindowTitle(ctx context.Context) (string, error) {
	return runTitle(ctx, "osascript", "-e", frontWindowScript)
}
