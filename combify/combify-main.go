package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/cogger"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/geospatial-go/crosstab"
	"github.com/spf13/cobra"
)

func gsparse(file string) (bucket, object string) {
	if !strings.HasPrefix(file, "gs://") {
		return
	}
	file = file[5:]
	firstSlash := strings.Index(file, "/")
	if firstSlash == -1 {
		return
	}
	obj := strings.Trim(file[firstSlash:], "/")
	if obj == "" {
		return
	}
	bucket = file[0:firstSlash]
	object = obj
	return
}

// parseNames returns the per-input variable names: the --names list when
// given, otherwise the basename of each input stripped of its extension.
func parseNames(flag string, inputs []string) []string {
	if flag != "" {
		return strings.Split(flag, ",")
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		base := filepath.Base(in)
		names[i] = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return names
}

func parseBands(flag string) ([]int, error) {
	if flag == "" {
		return nil, nil
	}
	fields := strings.Split(flag, ",")
	bands := make([]int, len(fields))
	for i, f := range fields {
		b, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid band number %q", f)
		}
		bands[i] = b
	}
	return bands, nil
}

var dataTypes = map[string]godal.DataType{
	"Byte":    godal.Byte,
	"UInt16":  godal.UInt16,
	"Int16":   godal.Int16,
	"UInt32":  godal.UInt32,
	"Int32":   godal.Int32,
	"Float32": godal.Float32,
	"Float64": godal.Float64,
}

var outfile string
var tableFormat string
var rasterOut string
var rasterFormat string
var rasterType string
var creationOpts []string
var names string
var bandList string
var blockSize string
var numCachedBlocks int
var tmpdir string
var overviews bool
var cog bool
var quiet bool

func init() {
	combineCommand.Flags().StringVarP(&outfile, "out", "o", "-", "combination table destination (file, gs:// object, or - for stdout)")
	combineCommand.Flags().StringVar(&tableFormat, "table-format", "csv", "combination table format (csv or feather)")
	combineCommand.Flags().StringVar(&rasterOut, "raster", "", "optional output raster receiving per-pixel combination ids")
	combineCommand.Flags().StringVar(&rasterFormat, "of", "GTiff", "output raster format")
	combineCommand.Flags().StringVar(&rasterType, "ot", "UInt32", "output raster data type")
	combineCommand.Flags().StringArrayVar(&creationOpts, "co", nil, "output raster creation option (repeatable)")
	combineCommand.Flags().StringVar(&names, "names", "", "comma separated variable names (default: input basenames)")
	combineCommand.Flags().StringVar(&bandList, "bands", "", "comma separated band numbers, one per input (default: 1)")
	combineCommand.Flags().StringVarP(&blockSize, "gs.blocksize", "b", "512k", "gs:// block size")
	combineCommand.Flags().IntVarP(&numCachedBlocks, "gs.numblocks", "n", 512, "number of gs:// blocks to cache")
	combineCommand.Flags().StringVar(&tmpdir, "tmp", ".", "directory to use for temp file")
	combineCommand.Flags().BoolVar(&overviews, "ovr", true, "compute overviews on the cog output")
	combineCommand.Flags().BoolVar(&cog, "cog", false, "rewrite the output raster as a cloud optimized geotiff")
	combineCommand.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress meter")
}

func main() {
	err := combineCommand.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var combineCommand = &cobra.Command{
	Use:   "combify [flags] -- infile1 infile2 [infileN...]",
	Short: "cross-tabulate unique combinations of raster cell values",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		inputs := args
		dtype, ok := dataTypes[rasterType]
		if !ok {
			return fmt.Errorf("unsupported data type %s", rasterType)
		}
		bands, err := parseBands(bandList)
		if err != nil {
			return err
		}

		gsNeeded := false
		for _, f := range append([]string{outfile, rasterOut}, inputs...) {
			if b, _ := gsparse(f); b != "" {
				gsNeeded = true
			}
		}
		var stcl *storage.Client
		if gsNeeded {
			stcl, err = storage.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("failed to create gcs storage client: %w", err)
			}
			gs, err := osio.GCSHandle(ctx, osio.GCSClient(stcl))
			if err != nil {
				return fmt.Errorf("osio.gcshandle: %w", err)
			}
			gsa, err := osio.NewAdapter(gs, osio.BlockSize(blockSize), osio.NumCachedBlocks(numCachedBlocks))
			if err != nil {
				return fmt.Errorf("osio.newadapter: %w", err)
			}
			err = godal.RegisterVSIAdapter("gs://", gsa)
			if err != nil {
				return fmt.Errorf("godal.registervsi: %w", err)
			}
		}
		godal.RegisterAll()

		copts := []crosstab.CombineOption{
			crosstab.OnWarning(func(err error) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}),
		}
		if !quiet {
			copts = append(copts, crosstab.Progress(func(complete float64) {
				fmt.Fprintf(os.Stderr, "\rcombining: %3.0f%%", complete*100)
			}))
		}

		tifout := rasterOut
		if rasterOut != "" {
			if cog {
				tmpf, err := os.CreateTemp(tmpdir, "*.tif")
				if err != nil {
					return err
				}
				tmpf.Close()
				tifout = tmpf.Name()
				defer os.Remove(tifout)
				copts = append(copts,
					crosstab.OutputTo(tifout),
					crosstab.OutputFormat(godal.GTiff),
					crosstab.CreationOption("TILED=YES", "BLOCKXSIZE=256", "BLOCKYSIZE=256", "COMPRESS=LZW", "BIGTIFF=YES"),
					crosstab.OutputDataType(dtype),
				)
			} else {
				copts = append(copts,
					crosstab.OutputTo(rasterOut),
					crosstab.OutputFormat(godal.DriverName(rasterFormat)),
					crosstab.CreationOption(creationOpts...),
					crosstab.OutputDataType(dtype),
				)
			}
		}

		table, err := crosstab.Combine(inputs, parseNames(names, inputs), bands, copts...)
		if !quiet {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("combine: %w", err)
		}

		if rasterOut != "" && cog {
			ds, err := godal.Open(tifout)
			if err != nil {
				return fmt.Errorf("re-open %s: %w", tifout, err)
			}
			if overviews {
				if err = ds.BuildOverviews(); err != nil {
					ds.Close()
					return fmt.Errorf("build overviews: %w", err)
				}
			}
			if err = ds.Close(); err != nil {
				return fmt.Errorf("close temp tif: %w", err)
			}
			tmpf, err := os.Open(tifout)
			if err != nil {
				return fmt.Errorf("re-open temp tif %s: %w", tifout, err)
			}
			defer tmpf.Close()
			outw, err := createOutput(ctx, stcl, rasterOut)
			if err != nil {
				return err
			}
			if err = cogger.Rewrite(outw, tmpf); err != nil {
				return fmt.Errorf("cogger.rewrite: %w", err)
			}
			if err = outw.Close(); err != nil {
				return fmt.Errorf("close %s: %w", rasterOut, err)
			}
		}

		return writeTable(cmd, stcl, table)
	},
}

func createOutput(ctx context.Context, stcl *storage.Client, name string) (io.WriteCloser, error) {
	if b, o := gsparse(name); b != "" {
		return stcl.Bucket(b).Object(o).NewWriter(ctx), nil
	}
	w, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return w, nil
}

func writeTable(cmd *cobra.Command, stcl *storage.Client, table crosstab.Table) error {
	var w io.WriteCloser
	var err error
	if outfile == "-" {
		w = os.Stdout
	} else if b, o := gsparse(outfile); b != "" {
		w = stcl.Bucket(b).Object(o).NewWriter(cmd.Context())
	} else {
		w, err = os.Create(outfile)
		if err != nil {
			return fmt.Errorf("create %s: %w", outfile, err)
		}
	}
	switch tableFormat {
	case "csv":
		err = table.WriteCSV(w)
	case "feather":
		err = table.WriteArrow(w)
	default:
		err = fmt.Errorf("unsupported table format %s", tableFormat)
	}
	if err != nil {
		if outfile != "-" {
			w.Close()
		}
		return err
	}
	if outfile == "-" {
		return nil
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outfile, err)
	}
	return nil
}
