package main

import (
	"encoding/hex"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/channeld"
	"github.com/lnp-node/lnpnode/config"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
	"github.com/lnp-node/lnpnode/storage"
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

	if err := log.InitLogRotator(cfg.LogFile("channeld"), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return err
	}
	log.SetLogLevels(cfg.DebugLevel)

	tempID, err := parseTempChannelID(cfg.TempChannelID)
	if err != nil {
		return err
	}

	channel := channeld.New(tempID, channeld.DefaultPolicy(), storage.NewFileDriver(), cfg.DataDir)

	endpoints := map[esb.Bus]string{
		esb.Msg: cfg.MsgEndpoint,
		esb.Ctl: cfg.CtlEndpoint,
	}
	controller := esb.NewDealer(address.Channel(tempID), endpoints, address.Supervisor, channel)
	if err := controller.Run(); err != nil {
		return lnperrors.WithStack(err)
	}
	if err := controller.Bootstrap(); err != nil {
		return lnperrors.WithStack(err)
	}

	// Having registered with lnpd via Hello, announce readiness to be
	// wired to a connectiond and handed the channel's real parameters
	// (spec.md §4.2 "Child launching").
	if err := controller.SendTo(esb.Ctl, channel.Identity(), address.Supervisor, &request.Connect{}); err != nil {
		return lnperrors.WithStack(err)
	}

	log.ChanneldLog.Infof("channeld started for %x", tempID)
	select {}
}

func parseTempChannelID(s string) (lnpwp.ChannelID, error) {
	var id lnpwp.ChannelID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("channeld: invalid temporary channel id %q: %v", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("channeld: temporary channel id must be %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
