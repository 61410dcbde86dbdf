// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package main

import (
	"fmt"
	"os"

	"mchanger/pkg/api"
	"mchanger/pkg/cli"
	"mchanger/pkg/host"
	"mchanger/pkg/logger"
	"mchanger/pkg/smc"
)

const commandRun = "run"

func runCommandList() *cli.CommandList {
	commands := cli.NewCommandList(
		"mchangerd",
		"media changer control daemon\n",
	)
	commands.AddCommand(
		commandRun,
		"Enumerate changer devices, open one session"+
			" and serve the control socket until killed.",
	).AddParameter(
		"-S",
		"socket",
		"Path of the unix control socket.",
		"path",
		false,
	).AddParameter(
		"-D",
		"device",
		"Substring of the product or device path to open.",
		"name",
		false,
	).AddParameter(
		"-L",
		"log-level",
		"One of error, warning, info, debug.",
		"level",
		false,
	).AddFlag(
		"-f",
		"force",
		"Open a changer outside the known vendor/product family.",
	).AddFlag(
		"-T",
		"no-tur",
		"Skip the readiness probe after the session opens.",
	)
	return commands
}

func main() {
	commands := runCommandList()
	err := commands.Parse(os.Args)
	if err != nil {
		if helpCmd, ok := err.(*cli.ErrHelpPageRequested); ok {
			fmt.Println(helpCmd)
			os.Exit(0)
		}
		_, err := fmt.Fprintf(os.Stderr, "%s\n", err)
		if err != nil {
			panic(err)
		}
		os.Exit(1)
	}
	_, command := commands.GetCurrentCommand()
	if command == nil {
		_, _ = fmt.Fprintln(os.Stderr, "no command parsed")
		os.Exit(1)
	}
	logger.SetLoggingConfig(logger.Info)
	if level, err := command.GetParameter("log-level"); err == nil {
		logger.SetLoggingConfig(logger.ParseLevel(level))
	}
	log := logger.GetLogger()
	options := smc.OpenOptions{
		Force:  command.GetFlag("force"),
		Config: smc.Config{SkipReadyCheck: command.GetFlag("no-tur")},
	}
	if device, err := command.GetParameter("device"); err == nil {
		options.DeviceName = device
	}
	changer, err := smc.Open(host.NewDeviceEnumerator(), host.NewSessionService(), options)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	defer func() {
		if err := changer.Close(); err != nil {
			log.Error(err)
		}
	}()
	log.Infof(
		"session %s open on %s (%s %s)",
		changer.ID, changer.Info.Path, changer.Info.Vendor, changer.Info.Product)
	socketPath := ""
	if socket, err := command.GetParameter("socket"); err == nil {
		socketPath = socket
	}
	apiServer := api.NewApiServer(changer, host.NewMountObserver(), socketPath)
	apiServer.Run()
}
