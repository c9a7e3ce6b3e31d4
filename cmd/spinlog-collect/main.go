package main

import (
	"context"

	"github.com/joho/godotenv"

	"spinlog/internal/core/version"
	"spinlog/internal/modkit"
	"spinlog/internal/modkit/module"
	"spinlog/internal/platform/config"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
	collectordom "spinlog/internal/services/collector/domain"
	collectormod "spinlog/internal/services/collector/module"
)

func main() {
	_ = godotenv.Load()

	root := config.New()
	objCfg := root.Prefix("STORE_OBJECTS_")
	l := logger.Get()

	bi := version.Info("spinlog-collect")
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
	}

	cm := collectormod.New(deps)
	module.Register(cm.Name(), cm.Ports())

	collector := module.MustPortsOf[collectordom.CollectorPort](cm)
	rep, err := collector.Collect(context.Background())
	if err != nil {
		l.Fatal().Err(err).Msg("collect failed")
	}
	if !rep.Wrote() {
		l.Info().Msg("nothing new to collect")
	}
}
