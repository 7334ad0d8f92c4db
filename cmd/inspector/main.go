// INSPECTOR, Infrastructure Inspection Platform
// Copyright (C) 2023-2024 OpsMind Co., Ltd.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version. For any non-GPL usage of Inspector,
// one or multiple Commercial Licenses authorized by OpsMind Co., Ltd.
// must be obtained first.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/opsmind/inspector/cache"
	"github.com/opsmind/inspector/cmd/inspector/option"
	"github.com/opsmind/inspector/db"
	dbconfig "github.com/opsmind/inspector/db/config"
	"github.com/opsmind/inspector/inspection"
	"github.com/opsmind/inspector/logmon"
	"github.com/opsmind/inspector/notifier"
	"github.com/opsmind/inspector/pkg/gogo"
	"github.com/opsmind/inspector/prom"
	"github.com/opsmind/inspector/scheduler"
	"github.com/opsmind/inspector/trend"
)

//App inspector command line app
var App *cli.App

func main() {
	App = cli.NewApp()
	App.Name = "inspector"
	App.Version = "1.2.0"
	App.Usage = "infrastructure inspection platform"
	App.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Usage: "log level: debug/info/warning/error"},
		cli.StringFlag{Name: "prometheus", Usage: "prometheus endpoint url"},
		cli.StringFlag{Name: "mysql", Usage: "mysql connection info, user:password@tcp(host:port)/database"},
		cli.StringFlag{Name: "redis", Usage: "redis address, empty runs with the in-process cache"},
		cli.StringFlag{Name: "es", Usage: "elasticsearch url, empty disables log monitoring"},
	}
	App.Commands = []cli.Command{
		setupCommand(),
		inspectCommand(),
		scheduleCommand(),
		serveCommand(),
	}
	sort.Sort(cli.FlagsByName(App.Flags))
	if err := App.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*option.Config, error) {
	conf := option.NewConfig()
	if v := c.GlobalString("log-level"); v != "" {
		conf.LogLevel = v
	}
	if v := c.GlobalString("prometheus"); v != "" {
		conf.PrometheusEndpoint = v
	}
	if v := c.GlobalString("mysql"); v != "" {
		conf.MysqlConnectionInfo = v
	}
	if v := c.GlobalString("redis"); v != "" {
		conf.RedisAddr = v
	}
	if v := c.GlobalString("es"); v != "" {
		conf.EsURL = v
	}
	if err := conf.CompleteConfig(); err != nil {
		return nil, err
	}
	return conf, nil
}

type components struct {
	manager db.Manager
	store   cache.Store
	gateway *prom.Gateway
	notify  *notifier.Manager
	engine  *inspection.Engine
	checker *trend.Checker
	minute  *logmon.MinuteCycle
}

func build(conf *option.Config, withNotify bool) (*components, error) {
	manager, err := db.CreateManager(dbconfig.Config{
		DBType:              "mysql",
		MysqlConnectionInfo: conf.MysqlConnectionInfo,
	})
	if err != nil {
		return nil, err
	}

	var store cache.Store
	if conf.RedisAddr != "" {
		store = cache.NewRedisStore(conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
	} else {
		logrus.Info("no redis configured, using the in-process cache")
		store = cache.NewMemoryStore()
	}

	gateway, err := prom.NewGateway(prom.Options{
		Endpoint:   conf.PrometheusEndpoint,
		Timeout:    time.Duration(conf.PrometheusTimeout) * time.Second,
		MaxWorkers: conf.PrometheusWorkers,
	})
	if err != nil {
		return nil, err
	}

	notify := notifier.NewManager()
	if withNotify {
		if conf.DingTalkWebhook != "" {
			notify.AddChannel(notifier.NewDingTalk(conf.DingTalkWebhook))
		}
		if conf.FeishuWebhook != "" {
			notify.AddChannel(notifier.NewFeishu(conf.FeishuWebhook))
		}
		if conf.SlackWebhook != "" {
			notify.AddChannel(notifier.NewSlack(conf.SlackWebhook))
		}
		if conf.WorkWechatWebhook != "" {
			notify.AddChannel(notifier.NewWorkWechat(conf.WorkWechatWebhook, conf.WorkWechatChannel))
		}
	}

	com := &components{
		manager: manager,
		store:   store,
		gateway: gateway,
		notify:  notify,
		engine:  inspection.NewEngine(gateway, manager, store, notify, conf.PrometheusEndpoint),
		checker: trend.NewChecker(manager.ResourceSnapshotDao(), store, notify, trend.DefaultThresholds()),
	}
	if conf.EsURL != "" {
		source := logmon.NewElasticSource(logmon.ElasticOptions{
			URL:      conf.EsURL,
			Username: conf.EsUsername,
			Password: conf.EsPassword,
			Index:    conf.EsIndex,
		})
		com.minute = logmon.NewMinuteCycle(source, store, notify, logmon.DefaultThresholds())
	}
	return com, nil
}

func setupCommand() cli.Command {
	return cli.Command{
		Name:  "setup",
		Usage: "create or migrate the database tables and exit",
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			manager, err := db.CreateManager(dbconfig.Config{
				DBType:              "mysql",
				MysqlConnectionInfo: conf.MysqlConnectionInfo,
			})
			if err != nil {
				return err
			}
			defer manager.CloseManager()
			fmt.Println("database initialized")
			return nil
		},
	}
}

func inspectCommand() cli.Command {
	return cli.Command{
		Name:  "inspect",
		Usage: "run one inspection cycle and print the report",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "notify", Usage: "send alert notifications to the configured webhooks"},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			com, err := build(conf, c.Bool("notify"))
			if err != nil {
				return err
			}
			defer com.manager.CloseManager()

			report, err := com.engine.RunCycle(context.Background())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(map[string]interface{}{
				"summary": report.Summary,
				"results": report.Results,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func scheduleCommand() cli.Command {
	return cli.Command{
		Name:  "schedule",
		Usage: "run the inspection and log monitoring loops until terminated",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "health-interval", Usage: "seconds between inspection cycles", Value: 0},
			cli.BoolFlag{Name: "weekly", Usage: "additionally run at a fixed weekly time"},
			cli.IntFlag{Name: "weekly-day", Usage: "weekday of the weekly run, 0 is sunday", Value: 1},
			cli.IntFlag{Name: "weekly-hour", Usage: "hour of the weekly run", Value: 3},
			cli.IntFlag{Name: "weekly-minute", Usage: "minute of the weekly run", Value: 0},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.Int("health-interval"); v > 0 {
				conf.HealthInterval = v
			}
			com, err := build(conf, true)
			if err != nil {
				return err
			}
			defer com.manager.CloseManager()

			options := scheduler.Options{
				Interval: time.Duration(conf.HealthInterval) * time.Second,
			}
			if c.Bool("weekly") {
				options.Weekly = []scheduler.WeeklySchedule{{
					Weekday: time.Weekday(c.Int("weekly-day")),
					Hour:    c.Int("weekly-hour"),
					Minute:  c.Int("weekly-minute"),
				}}
			}
			var minute scheduler.MinuteDriver
			if com.minute != nil {
				minute = com.minute
			}
			sched := scheduler.New(com.engine, com.checker, minute, options)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			if err := sched.Start(ctx); err != nil {
				return err
			}
			logrus.Infof("scheduler started, inspection interval %ds", conf.HealthInterval)
			<-ctx.Done()
			logrus.Info("shutting down")
			gogo.Wait()
			return nil
		},
	}
}

func serveCommand() cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "keep the shared caches warm for an external dashboard",
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			com, err := build(conf, false)
			if err != nil {
				return err
			}
			defer com.manager.CloseManager()

			var minute scheduler.MinuteDriver
			if com.minute != nil {
				minute = com.minute
			}
			sched := scheduler.New(com.engine, com.checker, minute, scheduler.Options{})

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			if err := sched.StartCacheDrivers(ctx); err != nil {
				return err
			}
			logrus.Info("cache drivers started, dashboard reads are served from redis")
			<-ctx.Done()
			logrus.Info("shutting down")
			gogo.Wait()
			return nil
		},
	}
}
