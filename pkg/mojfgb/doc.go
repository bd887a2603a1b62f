// Package mojfgb converts Ministry of Justice cadastral map XML (地図XML,
// published through the 登記所備付地図データ program) into FlatGeobuf files
// and reads the results back.
//
// A conversion walks a distribution ZIP, including per-municipality ZIPs
// nested inside it, parses each XML document, resolves parcel geometry from
// its point and curve references, reprojects the plane-rectangular survey
// coordinates to JGD2011 longitude/latitude (EPSG:6668), and writes one
// spatially indexed FlatGeobuf file:
//
//	summary, err := mojfgb.Convert(ctx, "26101.zip", "26101.fgb", mojfgb.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d parcels, %d entries skipped\n", summary.Features, len(summary.Skipped))
//
// Entries that fail to parse are skipped and reported in the Summary;
// Options.Strict turns the first failure into a run failure instead. Either
// way a partial output file is never left behind.
//
// Written files are opened with Open for metadata, full scans, and bounding
// box queries through the file's packed spatial index:
//
//	ds, err := mojfgb.Open("26101.fgb")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ds.Close()
//	features, err := ds.FeaturesInBounds(viewport)
//
// References:
//   - 地図XMLフォーマット: https://www.moj.go.jp/MINJI/minji05_00494.html
//   - FlatGeobuf: https://flatgeobuf.org/
package mojfgb
