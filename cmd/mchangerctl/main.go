// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package main

import (
	"fmt"
	"os"
	"strconv"

	"mchanger/pkg/api"
	"mchanger/pkg/cli"
)

type Client struct {
	client   api.ClientRequester
	commands *cli.CommandList
}

const (
	CommandStatus      = "status"
	CommandMap         = "map"
	CommandSlotStatus  = "slotstatus"
	CommandDriveStatus = "drivestatus"
	CommandLoad        = "load"
	CommandUnload      = "unload"
	CommandEject       = "eject"
	CommandInsert      = "insert"
	CommandRetrieve    = "retrieve"
	CommandMove        = "move"
	CommandInquiry     = "inquiry"
	CommandReady       = "ready"
	CommandInitStatus  = "initstatus"
	CommandLogSense    = "logsense"
	CommandReportLuns  = "reportluns"
)

func addSlotParameter(command *cli.Command) *cli.Command {
	return command.AddParameter(
		"-s",
		"slot",
		"1-based slot index, decimal or 0x-hex.",
		"slot",
		true,
	)
}

func addDriveParameter(command *cli.Command) *cli.Command {
	return command.AddParameter(
		"-d",
		"drive",
		"1-based drive index, decimal or 0x-hex.",
		"drive",
		true,
	)
}

func addTransportParameter(command *cli.Command) *cli.Command {
	return command.AddParameter(
		"-t",
		"transport",
		"Transport element address, overrides the first discovered one.",
		"address",
		false,
	)
}

func addDryRunFlag(command *cli.Command) *cli.Command {
	return command.AddFlag(
		"-n",
		"dry-run",
		"Plan the moves without touching the device.",
	)
}

func addStatusCli(commands *cli.CommandList) {
	commands.AddCommand(CommandStatus, "Show the open session and device identity.")
}

func addMapCli(commands *cli.CommandList) {
	commands.AddCommand(
		CommandMap,
		"Discover and list all element addresses by kind.",
	)
}

func addSlotStatusCli(commands *cli.CommandList) {
	addSlotParameter(commands.AddCommand(
		CommandSlotStatus,
		"Show whether a slot holds a medium.",
	))
}

func addDriveStatusCli(commands *cli.CommandList) {
	addDriveParameter(commands.AddCommand(
		CommandDriveStatus,
		"Show whether a drive holds a medium and where it came from.",
	))
}

func addLoadCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandLoad,
		"Move the medium from a slot into a drive,"+
			" unloading the drive first if needed.",
	)
	addSlotParameter(command)
	addDriveParameter(command)
	addTransportParameter(command)
	addDryRunFlag(command)
	command.AddFlag(
		"-v",
		"verbose",
		"Wait for the volume to mount and report it.",
	)
}

func addUnloadCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandUnload,
		"Move whatever the drive holds back into a slot.",
	)
	addSlotParameter(command)
	addDriveParameter(command)
	addTransportParameter(command)
	addDryRunFlag(command)
}

func addEjectCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandEject,
		"Expel the medium of a slot through the import/export port,"+
			" fetching it from the drive first when it is there.",
	)
	addSlotParameter(command)
	addDriveParameter(command)
	addTransportParameter(command)
	addDryRunFlag(command)
}

func addInsertCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandInsert,
		"Move a medium from the import/export port into a slot.",
	)
	addSlotParameter(command)
	addTransportParameter(command)
	addDryRunFlag(command)
}

func addRetrieveCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandRetrieve,
		"Move a medium from a slot to the import/export port.",
	)
	addSlotParameter(command)
	addTransportParameter(command)
	addDryRunFlag(command)
}

func addMoveCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandMove,
		"Issue one MOVE MEDIUM with raw element addresses.",
	)
	command.AddParameter(
		"-t",
		"transport",
		"Transport element address.",
		"address",
		true,
	).AddParameter(
		"-s",
		"source",
		"Source element address.",
		"address",
		true,
	).AddParameter(
		"-d",
		"destination",
		"Destination element address.",
		"address",
		true,
	)
	addDryRunFlag(command)
}

func addInquiryCli(commands *cli.CommandList) {
	commands.AddCommand(CommandInquiry, "Report vendor, product and revision.")
}

func addReadyCli(commands *cli.CommandList) {
	commands.AddCommand(CommandReady, "Probe the unit with TEST UNIT READY.")
}

func addInitStatusCli(commands *cli.CommandList) {
	commands.AddCommand(
		CommandInitStatus,
		"Ask the unit to rescan all of its elements. Slow.",
	)
}

func addLogSenseCli(commands *cli.CommandList) {
	commands.AddCommand(
		CommandLogSense,
		"Dump one log page as hex.",
	).AddParameter(
		"-p",
		"page",
		"Log page code, decimal or 0x-hex.",
		"page",
		true,
	)
}

func addReportLunsCli(commands *cli.CommandList) {
	commands.AddCommand(CommandReportLuns, "List the logical units the device reports.")
}

func NewClient() Client {
	commands := cli.NewCommandList(
		"mchangerctl",
		"a tool to communicate with "+
			"the mchangerd daemon\n",
	)
	addStatusCli(commands)
	addMapCli(commands)
	addSlotStatusCli(commands)
	addDriveStatusCli(commands)
	addLoadCli(commands)
	addUnloadCli(commands)
	addEjectCli(commands)
	addInsertCli(commands)
	addRetrieveCli(commands)
	addMoveCli(commands)
	addInquiryCli(commands)
	addReadyCli(commands)
	addInitStatusCli(commands)
	addLogSenseCli(commands)
	addReportLunsCli(commands)
	return Client{
		client:   api.NewApiRequester(""),
		commands: commands,
	}
}

func parseIndex(command *cli.Command, name string) (int, error) {
	raw, err := command.GetParameter(name)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(raw, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, '%s' received", name, raw)
	}
	return int(value), nil
}

func parseAddress(command *cli.Command, name string) (uint16, error) {
	value, err := parseIndex(command, name)
	if err != nil {
		return 0, err
	}
	return uint16(value), nil
}

func optionalTransport(command *cli.Command) (*uint16, error) {
	if !command.HasParameter("transport") {
		return nil, nil
	}
	address, err := parseAddress(command, "transport")
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (client Client) PerformStatus() error {
	response, err := client.client.PerformStatus()
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformMap() error {
	response, err := client.client.PerformListMap()
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformSlotStatus(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	response, err := client.client.PerformSlotStatus(slot)
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformDriveStatus(command *cli.Command) error {
	drive, err := parseIndex(command, "drive")
	if err != nil {
		return err
	}
	response, err := client.client.PerformDriveStatus(drive)
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformLoad(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	drive, err := parseIndex(command, "drive")
	if err != nil {
		return err
	}
	transport, err := optionalTransport(command)
	if err != nil {
		return err
	}
	response, err := client.client.PerformLoad(
		slot, drive, transport, command.GetFlag("dry-run"), command.GetFlag("verbose"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformUnload(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	drive, err := parseIndex(command, "drive")
	if err != nil {
		return err
	}
	transport, err := optionalTransport(command)
	if err != nil {
		return err
	}
	response, err := client.client.PerformUnload(
		slot, drive, transport, command.GetFlag("dry-run"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformEject(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	drive, err := parseIndex(command, "drive")
	if err != nil {
		return err
	}
	transport, err := optionalTransport(command)
	if err != nil {
		return err
	}
	response, err := client.client.PerformEject(
		slot, drive, transport, command.GetFlag("dry-run"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformInsert(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	transport, err := optionalTransport(command)
	if err != nil {
		return err
	}
	response, err := client.client.PerformInsert(slot, transport, command.GetFlag("dry-run"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformRetrieve(command *cli.Command) error {
	slot, err := parseIndex(command, "slot")
	if err != nil {
		return err
	}
	transport, err := optionalTransport(command)
	if err != nil {
		return err
	}
	response, err := client.client.PerformRetrieve(slot, transport, command.GetFlag("dry-run"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformMove(command *cli.Command) error {
	transport, err := parseAddress(command, "transport")
	if err != nil {
		return err
	}
	source, err := parseAddress(command, "source")
	if err != nil {
		return err
	}
	destination, err := parseAddress(command, "destination")
	if err != nil {
		return err
	}
	response, err := client.client.PerformMove(
		transport, source, destination, command.GetFlag("dry-run"))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformInquiry() error {
	response, err := client.client.PerformInquiry()
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformReady() error {
	err := client.client.PerformTestUnitReady()
	if err != nil {
		return err
	}
	fmt.Println("Unit is ready")
	return nil
}

func (client Client) PerformInitStatus() error {
	err := client.client.PerformInitStatus()
	if err != nil {
		return err
	}
	fmt.Println("Element status initialized")
	return nil
}

func (client Client) PerformLogSense(command *cli.Command) error {
	page, err := parseIndex(command, "page")
	if err != nil {
		return err
	}
	if page > 0x3f {
		return fmt.Errorf("log page code must be <= 0x3f")
	}
	response, err := client.client.PerformLogSense(byte(page))
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformReportLuns() error {
	response, err := client.client.PerformReportLuns()
	if err != nil {
		return err
	}
	fmt.Println(response.ToCmdlineOutput())
	return nil
}

func (client Client) PerformCommand() error {
	commandName, command := client.commands.GetCurrentCommand()
	if command == nil {
		return fmt.Errorf(
			"command is nil, probably an" +
				" implementation issue of command line arguments parsing",
		)
	}
	switch commandName {
	case CommandStatus:
		return client.PerformStatus()
	case CommandMap:
		return client.PerformMap()
	case CommandSlotStatus:
		return client.PerformSlotStatus(command)
	case CommandDriveStatus:
		return client.PerformDriveStatus(command)
	case CommandLoad:
		return client.PerformLoad(command)
	case CommandUnload:
		return client.PerformUnload(command)
	case CommandEject:
		return client.PerformEject(command)
	case CommandInsert:
		return client.PerformInsert(command)
	case CommandRetrieve:
		return client.PerformRetrieve(command)
	case CommandMove:
		return client.PerformMove(command)
	case CommandInquiry:
		return client.PerformInquiry()
	case CommandReady:
		return client.PerformReady()
	case CommandInitStatus:
		return client.PerformInitStatus()
	case CommandLogSense:
		return client.PerformLogSense(command)
	case CommandReportLuns:
		return client.PerformReportLuns()
	case "":
		return fmt.Errorf("received empty command type name")
	default:
		return fmt.Errorf("unknown command name %s", commandName)
	}
}

func main() {
	client := NewClient()
	err := client.commands.Parse(os.Args)
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
	err = client.PerformCommand()
	if err != nil {
		_, err := fmt.Fprintln(os.Stderr, err)
		if err != nil {
			panic(err)
		}
		os.Exit(1)
	}
}
