package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/fendouba123/DCNN/nnet"
	"github.com/fendouba123/DCNN/storage"
	"github.com/fendouba123/DCNN/web"
)

func main() {
	godotenv.Load()
	addr := flag.String("addr", ":8080", "listen address")
	dbFile := flag.String("db", "runs.db", "run store file")
	flag.Parse()

	store, err := storage.Open(*dbFile)
	nnet.CheckErr(err)
	defer store.Close()

	router, _, err := web.NewRouter(store, os.Getenv("DCNN_USER"), os.Getenv("DCNN_PASS"))
	nnet.CheckErr(err)

	fmt.Printf("serving web page at http://localhost%s\n", *addr)
	http.ListenAndServe(*addr, router)
}
