package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fendouba123/DCNN/eval"
	"github.com/fendouba123/DCNN/nnet"
	"github.com/fendouba123/DCNN/stats"
	"github.com/fendouba123/DCNN/storage"
	"github.com/fendouba123/DCNN/web"
)

func main() {
	godotenv.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if len(os.Args) < 2 {
		fmt.Println("usage: crossval [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	conf, err := nnet.LoadConfig(model + ".net")
	nnet.CheckErr(err)

	// override config settings from command line
	expFile := flag.String("exp", "experiment.yaml", "experiment definition file")
	dbFile := flag.String("db", "", "run store file, overrides the experiment setting")
	serve := flag.String("serve", "", "serve the dashboard on this address while training")
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.MaxEpoch, "epochs", conf.MaxEpoch, "max epochs")
	flag.IntVar(&conf.TrainBatch, "batch", conf.TrainBatch, "train batch size")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	flag.Parse()

	exp, err := eval.LoadExperiment(*expFile)
	nnet.CheckErr(err)
	if *dbFile != "" {
		exp.Store = *dbFile
	}
	if exp.Store == "" {
		exp.Store = "runs.db"
	}
	store, err := storage.Open(exp.Store)
	nnet.CheckErr(err)
	defer store.Close()

	runner := &eval.Runner{Exp: exp, Model: model, Conf: conf, Store: store, Log: log}
	if *serve != "" {
		router, live, err := web.NewRouter(store, os.Getenv("DCNN_USER"), os.Getenv("DCNN_PASS"))
		nnet.CheckErr(err)
		runner.Progress = live.Progress()
		go func() {
			log.Info().Str("addr", *serve).Msg("serving dashboard")
			if err := http.ListenAndServe(*serve, router); err != nil {
				log.Error().Err(err).Msg("dashboard server")
			}
		}()
	}

	run, err := runner.Run()
	nnet.CheckErr(err)
	for _, name := range stats.MetricNames {
		fmt.Printf("%12s: %s\n", name, run.Summary[name])
	}
}
