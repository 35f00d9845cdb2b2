package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/console"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
)

var (
	watch_cmd = app.Command(
		"watch", "Connect to the server and print pushed events.")

	watch_token = watch_cmd.Flag(
		"token", "Bearer token (overrides the persisted session).").String()
)

func doWatch() error {
	config_obj, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.GetLogger(config_obj, &logging.ToolComponent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := console.NewConsole(config_obj)

	// Print every event type as it arrives.
	for _, event_type := range []comms.EventType{
		comms.EvAlertCreated, comms.EvAlertUpdated,
		comms.EvAlertStatusChanged, comms.EvQuarantineAction,
		comms.EvExportCompleted, comms.EvUserAction,
		comms.EvSystemEvent, comms.EvMetricsUpdate,
		comms.EvWorkflowExecution,
	} {
		defer c.Router.On(event_type, func(envelope *comms.Envelope) {
			serialized, err := json.MarshalIndent(envelope)
			if err == nil {
				os.Stdout.Write(serialized)
				os.Stdout.Write([]byte("\n"))
			}
		})()
	}

	if *watch_token != "" {
		c.API.SetToken(*watch_token)
		err = c.Conn.Connect(ctx, *watch_token)
	} else {
		err = c.Start(ctx)
	}
	if err != nil {
		return err
	}
	defer c.Stop()

	logger.Info("Watching %v, Ctrl-C to exit", config_obj.Client.WSUrl)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	return nil
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == watch_cmd.FullCommand() {
			err := doWatch()
			kingpin.FatalIfError(err, "watch")
			return true
		}
		return false
	})
}
