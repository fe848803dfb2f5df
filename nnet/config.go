package nnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"reflect"
	"strings"
)

// Training configuration settings
type Config struct {
	DataSet       string
	Optimiser     string
	Eta           float64
	Lambda        float64
	Beta1         float64
	Beta2         float64
	Epsilon       float64
	Bias          float64
	Threshold     float64
	NormalWeights bool
	FlattenInput  bool
	Shuffle       bool
	TrainBatch    int
	TestBatch     int
	MaxEpoch      int
	LogEvery      int
	StopAfter     int
	MinLoss       float64
	RandSeed      int64
	DebugLevel    int
	Layers        []LayerConfig
}

// Defaults fills in zero values which have a non zero default.
func (c Config) Defaults() Config {
	if c.Optimiser == "" {
		c.Optimiser = "adam"
	}
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-8
	}
	if c.Threshold == 0 {
		c.Threshold = 0.5
	}
	return c
}

// Load network config from json file under DataDir
func LoadConfig(name string) (c Config, err error) {
	filePath := path.Join(DataDir, name)
	var f *os.File
	if f, err = os.Open(filePath); err != nil {
		return
	}
	defer f.Close()
	fmt.Println("loading network config from", name)
	dec := json.NewDecoder(f)
	if err = dec.Decode(&c); err != nil {
		return
	}
	return c.Defaults(), nil
}

// Append layers to the config struct
func (c Config) AddLayers(layers ...ConfigLayer) Config {
	for _, l := range layers {
		c.Layers = append(c.Layers, l.Marshal())
	}
	return c
}

// Save default network definition and overwrites current config
func (c Config) SaveDefault(name string) error {
	err := c.Save(name + ".default")
	if err != nil {
		return err
	}
	return c.Save(name + ".net")
}

// Save config to JSON file under DataDir
func (c Config) Save(name string) error {
	filePath := path.Join(DataDir, "."+name)
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	fmt.Println("saving network config to", name)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(filePath, path.Join(DataDir, name))
}

func (c Config) Fields() []string {
	st := reflect.TypeOf(c)
	fld := make([]string, st.NumField()-1)
	for i := range fld {
		fld[i] = st.Field(i).Name
	}
	return fld
}

func (c Config) Get(key string) interface{} {
	s := reflect.ValueOf(c)
	return s.FieldByName(key).Interface()
}

func (c Config) configString() string {
	fields := c.Fields()
	str := []string{"== Config =="}
	for _, key := range fields {
		str = append(str, fmt.Sprintf("%-14s: %v", key, c.Get(key)))
	}
	return strings.Join(str, "\n")
}

func (c Config) String() string {
	s := c.configString()
	if c.Layers != nil {
		str := []string{"\n== Network =="}
		for i, layer := range c.Layers {
			str = append(str, fmt.Sprintf("%2d: %s", i, layer))
		}
		s += strings.Join(str, "\n")
	}
	return s
}
