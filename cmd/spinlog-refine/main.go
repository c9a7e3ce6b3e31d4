package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"spinlog/internal/core/version"
	"spinlog/internal/modkit"
	"spinlog/internal/modkit/module"
	"spinlog/internal/platform/config"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
	refinerydom "spinlog/internal/services/refinery/domain"
	refinerymod "spinlog/internal/services/refinery/module"
)

func main() {
	_ = godotenv.Load()

	root := config.New()
	l := logger.Get()

	bi := version.Info("spinlog-refine")
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

	var (
		fStart = flag.String("start", "", "UTC start day YYYY-MM-DD")
		fEnd   = flag.String("end", "", "UTC end day YYYY-MM-DD inclusive; defaults to -start")
	)
	flag.Parse()

	if *fStart == "" {
		l.Panic().Msg("must provide -start")
	}
	start, err := time.Parse("2006-01-02", *fStart)
	if err != nil {
		l.Panic().Err(err).Msg("bad -start")
	}
	end := start
	if *fEnd != "" {
		end, err = time.Parse("2006-01-02", *fEnd)
		if err != nil {
			l.Panic().Err(err).Msg("bad -end")
		}
		if end.Before(start) {
			l.Panic().Str("start", *fStart).Str("end", *fEnd).Msg("-end before -start")
		}
	}

	st := openStore(root, l)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{
		Cfg:     root,
		Log:     *l,
		Objects: st.Objects,
		CH:      st.CH,
	}

	rf := refinerymod.New(deps)
	module.Register(rf.Name(), rf.Ports())

	runner := module.MustPortsOf[refinerydom.RunnerPort](rf)
	rep, err := runner.Run(context.Background(), refinerydom.Window{From: start, To: end})
	if err != nil {
		l.Fatal().Err(err).Msg("refine failed")
	}
	if rep.Failed() {
		l.Fatal().Int("partitions_failed", len(rep.PartitionsFailed)).Msg("refine left partitions not updated")
	}
}

// openStore opens the object store plus clickhouse when the refinery
// runs on the clickhouse backend
func openStore(root config.Conf, l *logger.Logger) *store.Store {
	objCfg := root.Prefix("STORE_OBJECTS_")
	chCfg := root.Prefix("STORE_CLICKHOUSE_")
	backend := root.Prefix("CORE_REFINE_").MayString("BACKEND", "parquet")

	st, err := store.Open(context.Background(), store.Config{
		AppName: "spinlog",
		Objects: store.ObjectsConfig{
			Enabled:   true,
			Backend:   objCfg.MayEnum("BACKEND", "fs", "fs", "minio"),
			Root:      objCfg.MayString("ROOT", "./data"),
			Endpoint:  objCfg.MayString("ENDPOINT", ""),
			AccessKey: objCfg.MayString("ACCESS_KEY", ""),
			SecretKey: objCfg.MayString("SECRET_KEY", ""),
			Bucket:    objCfg.MayString("BUCKET", "spinlog"),
			Region:    objCfg.MayString("REGION", ""),
			UseSSL:    objCfg.MayBool("USE_SSL", false),
		},
		CH: store.CHConfig{
			Enabled:    strings.EqualFold(backend, "clickhouse"),
			Addr:       chCfg.MayString("ADDR", "localhost:9000"),
			Database:   chCfg.MayString("DATABASE", "spinlog"),
			Username:   chCfg.MayString("USERNAME", "spinlog"),
			Password:   chCfg.MayString("PASSWORD", ""),
			ClientRole: "spinlog",
			ClientTag:  "refine",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	return st
}
