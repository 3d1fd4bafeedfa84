package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/config"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/routed"
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

	if err := log.InitLogRotator(cfg.LogFile("routed"), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return err
	}
	log.SetLogLevels(cfg.DebugLevel)

	runtime := routed.New()
	endpoints := map[esb.Bus]string{
		esb.Msg: cfg.MsgEndpoint,
		esb.Ctl: cfg.CtlEndpoint,
	}
	controller := esb.NewDealer(address.Router, endpoints, address.Supervisor, runtime)
	if err := controller.Run(); err != nil {
		return lnperrors.WithStack(err)
	}
	if err := controller.Bootstrap(); err != nil {
		return lnperrors.WithStack(err)
	}

	log.RoutedLog.Info("routed started")
	select {}
}
