/*
 * browserkit - a DevTools control protocol driver for Chromium-family browsers
 * Copyright (C) 2026 The browserkit Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Command browserkit launches or attaches to a Chromium-family browser,
// prints its page targets, and, with --navigate, navigates the first page.
// It exists
// to exercise the library end to end, not as a product in its own right.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/browserkit/browserkit/api"
	"github.com/browserkit/browserkit/chromium"
	"github.com/browserkit/browserkit/common"
	"github.com/browserkit/browserkit/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		headless   bool
		execPath   string
		host, port string
		navigate   string
		metricsBind string
	)

	cmd := &cobra.Command{
		Use:   "browserkit",
		Short: "Launch or attach to a browser and drive its first page",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := common.NewLogger()
			metrics.MustRegister(prometheus.DefaultRegisterer)

			if metricsBind != "" {
				go serveMetrics(metricsBind, log)
			}

			cfg := common.DefaultConfig()
			cfg.Headless = headless
			cfg.ExecPath = execPath
			cfg.Host = host
			cfg.Port = port

			bt := chromium.NewBrowserType(log)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var (
				b   *common.Browser
				err error
			)
			if host != "" && port != "" {
				b, err = bt.Attach(ctx, cfg)
			} else {
				b, err = bt.Launch(ctx, cfg)
			}
			if err != nil {
				return err
			}
			defer b.Stop(context.Background())

			browser := &api.Browser{B: b}
			pages := browser.Pages()
			for _, p := range pages {
				fmt.Printf("target %s %s %s\n", p.Target.Info.TargetID, p.Target.Info.Type, p.Target.Info.URL)
			}

			if navigate != "" && len(pages) > 0 {
				if err := pages[0].Navigate(ctx, navigate); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&headless, "headless", true, "run the browser headless")
	flags.StringVar(&execPath, "browser-executable", "", "absolute path to the browser binary")
	flags.StringVar(&host, "host", "", "attach to an already-running instance at this host")
	flags.StringVar(&port, "port", "", "attach to an already-running instance at this port")
	flags.StringVar(&navigate, "navigate", "", "URL to navigate the first page to")
	flags.StringVar(&metricsBind, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	return cmd
}

func serveMetrics(addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
