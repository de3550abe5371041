// dvrouted runs a single distance-vector routing node until a line is
// read from stdin, then shuts down cleanly. It replaces the teacher's
// find_infohash_and_wait example, which picked a random port and polled
// a results channel for discovered peers -- this node has no request
// to poll, it just runs the reactor and an optional debug server.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/dragmakex/dv-routing"
	"github.com/dragmakex/dv-routing/logger"
)

const defaultIP = "192.168.1.100"

func main() {
	cfg := dvrouting.RegisterFlags(dvrouting.NewConfig())
	flag.Parse()

	if args := flag.Args(); len(args) == 1 {
		cfg.MyIP = args[0]
	} else if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Usage: %v [-flags] [<local-ipv4-address>]\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	} else {
		cfg.MyIP = defaultIP
	}

	log, err := logger.NewZap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dvrouted: logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	d, err := dvrouting.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dvrouted: config error: %v\n", err)
		os.Exit(1)
	}

	if err := d.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "dvrouted: start error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("dvrouted: node %s listening, press ENTER to stop", cfg.MyIP)

	bufio.NewReader(os.Stdin).ReadString('\n')

	d.Stop()
}
