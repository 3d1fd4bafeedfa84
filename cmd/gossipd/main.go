package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/config"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/gossipd"
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

	if err := log.InitLogRotator(cfg.LogFile("gossipd"), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return err
	}
	log.SetLogLevels(cfg.DebugLevel)

	runtime := gossipd.New()
	endpoints := map[esb.Bus]string{
		esb.Msg: cfg.MsgEndpoint,
		esb.Ctl: cfg.CtlEndpoint,
	}
	controller := esb.NewDealer(address.Gossip, endpoints, address.Supervisor, runtime)
	if err := controller.Run(); err != nil {
		return lnperrors.WithStack(err)
	}
	if err := controller.Bootstrap(); err != nil {
		return lnperrors.WithStack(err)
	}

	log.GossipdLog.Info("gossipd started")
	select {}
}
