package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Usage:   "Path of the toml config file, defaults and environment variables apply without it",
		EnvVars: []string{"CONFIG_PATH"},
	}

	nodeFlag := &cli.Int64Flag{
		Name:    "node",
		Usage:   "Snowflake node id of this instance, unique per running instance",
		Value:   1,
		EnvVars: []string{"NODE_ID"},
	}

	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "TerraEd"
	s.app.Usage = "Verify quest proofs and keep the points ledger"
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Flags:       []cli.Flag{configFlag, nodeFlag},
			Category:    "Api",
			Description: `Serve the submission, wallet and leaderboard apis.`,
		},
		{
			Action:      s.startWorker,
			Name:        "worker",
			Usage:       "Start verification worker",
			Flags:       []cli.Flag{configFlag, nodeFlag},
			Category:    "Worker",
			Description: `Consume verification requests from kafka, only needed when verification is async.`,
		},
		{
			Action:      s.startCron,
			Name:        "cron",
			Usage:       "Start cron jobs",
			Flags:       []cli.Flag{configFlag, nodeFlag},
			Category:    "Worker",
			Description: `Re-verify stale pending submissions and reset monthly points.`,
		},
		{
			Action: s.startMigrate,
			Name:   "migrate",
			Usage:  "Migrate the database",
			Flags: []cli.Flag{
				configFlag,
				&cli.BoolFlag{
					Name:  "auto",
					Usage: "Create tables from entities instead of running sql migrations, for local databases",
				},
			},
			Category: "Database",
		},
	}
}
