// Command connectiond dials one remote peer and bridges its LNPWP traffic
// onto the Msg bus (spec.md §4.4). The remote endpoint is the program's
// sole positional argument, reusing config.Load's convention of stashing
// any leftover arg on Config.TempChannelID.
package main

import (
	"fmt"
	"net"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/config"
	"github.com/lnp-node/lnpnode/connectiond"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/log"
)

func main() {
	if err := run(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.TempChannelID == "" {
		return fmt.Errorf("connectiond: missing remote peer endpoint argument")
	}
	endpoint := cfg.TempChannelID

	if err := log.InitLogRotator(cfg.LogFile("connectiond"), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return err
	}
	log.SetLogLevels(cfg.DebugLevel)

	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return fmt.Errorf("connectiond: dial %s: %v", endpoint, err)
	}

	runtime := connectiond.New(endpoint, conn)
	endpoints := map[esb.Bus]string{
		esb.Msg: cfg.MsgEndpoint,
		esb.Ctl: cfg.CtlEndpoint,
	}
	controller := esb.NewDealer(runtime.Identity(), endpoints, address.Supervisor, runtime)
	if err := controller.Run(); err != nil {
		return lnperrors.WithStack(err)
	}
	if err := controller.Bootstrap(); err != nil {
		return lnperrors.WithStack(err)
	}

	log.ConnectiondLog.Infof("connectiond bridging %s", endpoint)
	runtime.ReadLoop(controller)
	return nil
}
