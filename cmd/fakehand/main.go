// Command fakehand is a stand-in for the grasp hand server. It speaks the
// same line protocol so the client can be exercised without hardware:
//
//	allegro --executable ./fakehand gestures
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/gwillem/allegro/pkg/handtest"
)

type Options struct {
	Addr string `long:"addr" default:":12321" description:"Listen address"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	srv, err := handtest.Listen(opts.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", opts.Addr).Msg("listen")
	}
	log.Info().Str("addr", srv.Addr()).Msg("fake hand server listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-srv.Quit():
		log.Info().Msg("quit received")
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("stopping")
	}
	srv.Close()
}
