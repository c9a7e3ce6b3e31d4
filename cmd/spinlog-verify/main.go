package main

import (
	"context"
	"strings"

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
	objCfg := root.Prefix("STORE_OBJECTS_")
	chCfg := root.Prefix("STORE_CLICKHOUSE_")
	backend := root.Prefix("CORE_REFINE_").MayString("BACKEND", "parquet")
	l := logger.Get()

	bi := version.Info("spinlog-verify")
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

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
			ClientTag:  "verify",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
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
	rep, err := runner.Verify(context.Background())
	if err != nil {
		l.Fatal().Err(err).Msg("verify failed")
	}
	if !rep.OK() {
		l.Fatal().Int("problems", len(rep.Problems)).Msg("dataset invariants violated")
	}
}
