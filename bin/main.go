package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/argussoc/console/config"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("argus-console",
		"Realtime state core for the Argus SOC console.")

	config_path = app.Flag("config", "The configuration file.").
			Short('c').Envar(config.EnvConfigPath).String()

	verbose_flag = app.Flag(
		"verbose", "Enable verbose logging.").Short('v').
		Default("false").Bool()

	command_handlers []CommandHandler
)

func loadConfig() (*config.Config, error) {
	return new(config.Loader).
		WithVerbose(*verbose_flag).
		WithFileLoader(*config_path).
		WithEnvLoader(config.EnvConfigPath).
		WithDefaultLoader().
		WithEnvOverrides().
		LoadAndValidate()
}

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate).DefaultEnvars()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, handler := range command_handlers {
		if handler(command) {
			return
		}
	}
}
