package main

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

func main() {
	// Open a converted dataset
	ds, err := mojfgb.Open("26101.fgb")
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Close()

	fmt.Printf("Dataset: %s\n", ds.Name())
	fmt.Printf("Parcels: %d\n", ds.Count())

	// Define a viewport (central Kyoto)
	viewport := orb.Bound{
		Min: orb.Point{135.75, 35.00},
		Max: orb.Point{135.77, 35.02},
	}

	// Query the packed R-tree index for visible parcels
	features, err := ds.FeaturesInBounds(viewport)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Visible parcels: %d\n", len(features))

	for i := range features {
		f := &features[i]
		jiban, _ := f.Attribute("地番")
		b := f.Bound()
		fmt.Printf("  %s %s at [%.5f,%.5f]\n", f.ID(), jiban, b.Min[0], b.Min[1])
	}
}
