package cmd

// HELP_TEMPL lists the player commands, one per line, followed by the
// app description.
const HELP_TEMPL = `{{.Name}} {{.Version}}
{{.Usage}}

Usage:
        {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} <command> [arguments...]{{end}}
{{if .VisibleCommands}}
Commands:{{range .VisibleCommands}}
        {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}
{{end}}{{.Description}}
Run "{{.HelpName}} help <command>" to see the flags of a command.

`

// CMD_HELP_TEMPL prints a command's description followed by its flags.
const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}}: {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Flags:{{range .VisibleFlags}}
        {{.}}{{end}}{{end}}

`
