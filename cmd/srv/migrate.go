package main

import (
	"github.com/terraed/backend/migration"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(cctx *cli.Context) error {
	if err := s.loadConfig(cctx); err != nil {
		return err
	}

	s.loadLogger()
	if err := s.loadDatabase(); err != nil {
		return err
	}
	defer s.close()

	if cctx.Bool("auto") {
		return migration.AutoMigrate(s.ctx)
	}

	return migration.Migrate(s.ctx)
}
