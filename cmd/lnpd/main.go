package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/config"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnpd"
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

	if err := log.InitLogRotator(cfg.LogFile("lnpd"), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return err
	}
	log.SetLogLevels(cfg.DebugLevel)

	binDir, err := binDirOf(os.Args[0])
	if err != nil {
		return err
	}

	runtime := lnpd.New(binDir)
	endpoints := map[esb.Bus]string{
		esb.Msg: cfg.MsgEndpoint,
		esb.Ctl: cfg.CtlEndpoint,
	}
	controller := esb.NewRouter(address.Supervisor, endpoints, runtime)
	if err := controller.Run(); err != nil {
		return lnperrors.WithStack(err)
	}

	log.LnpdLog.Info("lnpd started")
	select {}
}

func binDirOf(arg0 string) (string, error) {
	abs, err := filepath.Abs(arg0)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}
