// Command trystero-demo joins a namespace on the public trackers and logs
// every peer that completes a verified handshake, serving Prometheus
// metrics on the side. It demonstrates the signaling core in isolation:
// no data is exchanged over the resulting Peer, since that is the Room
// layer's job and out of scope for this module.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expenses/trystero"
	"github.com/expenses/trystero/pionpeer"
	"github.com/expenses/trystero/sdpcrypto"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "trystero-demo joins a namespace and logs connecting peers.\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "usage:\n\n  %s [flags] <namespace>\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	appID := flag.String("app", "trystero-demo", "application id namespacing this swarm")
	trackers := flag.String("trackers", "", "comma separated tracker urls (defaults to the public pool)")
	metricsAddr := flag.String("metrics", ":9090", "address to serve /metrics on")
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	ns := flag.Arg(0)

	key, err := sdpcrypto.GenerateKey()
	if err != nil {
		log.Fatalf("could not generate signing key: %v", err)
	}

	cfg := trystero.Config{
		AppID:       *appID,
		SigningKey:  key,
		PeerFactory: pionpeer.New,
		Logger:      log.Default(),
	}
	if *trackers != "" {
		cfg.TrackerURLs = strings.Split(*trackers, ",")
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Fatal(http.ListenAndServe(*metricsAddr, nil))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	room, err := trystero.Join(ctx, cfg, ns)
	if err != nil {
		log.Fatalf("could not join %q: %v", ns, err)
	}
	defer room.Leave()

	room.OnPeerJoin(func(peer trystero.Peer, peerID string) {
		log.Printf("peer connected: %s (key pinned: %v)", peerID, peer.Key() != nil)
		peer.On(trystero.EventClose, func(args ...any) {
			log.Printf("peer disconnected: %s", peerID)
		})
	})

	log.Printf("joined %q as %s, waiting for peers (ctrl-c to quit)", ns, trystero.SelfID)
	<-ctx.Done()
}
