// sendframe pushes solid-color test frames at a panel daemon, either
// as LEDF datagrams over UDP or as raw RGB over its named pipe. Useful
// for bring-up and for exercising the wire protocol from the producer
// side.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/panelgrid/internal/frame"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:5568", "UDP target address")
		pipePath = flag.String("pipe", "", "send over this named pipe instead of UDP")
		width    = flag.Int("width", 32, "frame width in pixels")
		height   = flag.Int("height", 16, "frame height in pixels")
		color    = flag.String("color", "255,0,0", "solid fill color R,G,B")
		count    = flag.Int("count", 1, "number of frames to send")
		fps      = flag.Int("fps", 30, "send rate in frames per second")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	r, g, b, err := parseColor(*color)
	if err != nil {
		log.Fatal().Err(err).Str("color", *color).Msg("bad color")
	}
	f := frame.Solid(*width, *height, r, g, b)

	send, closer, err := dial(*addr, *pipePath, f)
	if err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}
	defer closer()

	interval := time.Second / time.Duration(max(1, *fps))
	for i := 0; i < *count; i++ {
		if err := send(); err != nil {
			log.Fatal().Err(err).Int("frame", i).Msg("send failed")
		}
		if i < *count-1 {
			time.Sleep(interval)
		}
	}
	log.Info().Int("frames", *count).Int("width", *width).Int("height", *height).
		Msg("done")
}

func dial(addr, pipePath string, f *frame.Frame) (func() error, func(), error) {
	if pipePath != "" {
		p, err := os.OpenFile(pipePath, os.O_WRONLY, 0)
		if err != nil {
			return nil, nil, err
		}
		return func() error {
			_, err := p.Write(f.Pix)
			return err
		}, func() { p.Close() }, nil
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, nil, err
	}
	pkt := frame.EncodeDatagram(f)
	return func() error {
		_, err := conn.Write(pkt)
		return err
	}, func() { conn.Close() }, nil
}

func parseColor(s string) (r, g, b byte, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want R,G,B")
	}
	var v [3]byte
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return 0, 0, 0, fmt.Errorf("channel %d out of range", i)
		}
		v[i] = byte(n)
	}
	return v[0], v[1], v[2], nil
}
