package crosstab

import "github.com/airbusgeo/godal"

type combineOpts struct {
	output   string
	driver   godal.DriverName
	dtype    godal.DataType
	creation []string
	progress ProgressFn
	warning  func(err error)
}

// CombineOption is an option that can be passed to Combine()
//
// Available CombineOptions are:
//
// • OutputTo
//
// • OutputFormat
//
// • OutputDataType
//
// • CreationOption
//
// • Progress
//
// • OnWarning
type CombineOption interface {
	setCombineOpt(co *combineOpts)
}

type valueCountOpts struct {
	progress ProgressFn
}

// ValueCountOption is an option that can be passed to ValueCounts()
//
// Available ValueCountOptions are:
//
// • Progress
type ValueCountOption interface {
	setValueCountOpt(vo *valueCountOpts)
}

type outputToOpt struct {
	name string
}

func (o outputToOpt) setCombineOpt(co *combineOpts) {
	co.output = o.name
}

// OutputTo requests that an output raster named name be materialized during
// the combine scan, holding the combination identifier of every pixel.
// OutputFormat must also be provided.
func OutputTo(name string) interface {
	CombineOption
} {
	return outputToOpt{name}
}

type outputFormatOpt struct {
	driver godal.DriverName
}

func (o outputFormatOpt) setCombineOpt(co *combineOpts) {
	co.driver = o.driver
}

// OutputFormat sets the gdal driver used to create the output raster.
func OutputFormat(driver godal.DriverName) interface {
	CombineOption
} {
	return outputFormatOpt{driver}
}

type outputDataTypeOpt struct {
	dtype godal.DataType
}

func (o outputDataTypeOpt) setCombineOpt(co *combineOpts) {
	co.dtype = o.dtype
}

// OutputDataType sets the pixel data type of the output raster. Defaults to
// godal.UInt32. Identifiers are materialized as uint32 regardless of the
// chosen type, so a wider type does not extend the 2^32-1 identifier range;
// narrower types overflow earlier.
func OutputDataType(dtype godal.DataType) interface {
	CombineOption
} {
	return outputDataTypeOpt{dtype}
}

type creationOpt struct {
	creation []string
}

func (o creationOpt) setCombineOpt(co *combineOpts) {
	co.creation = append(co.creation, o.creation...)
}

// CreationOption are format-specific KEY=VALUE creation options passed to the
// driver of the output raster (e.g. COMPRESS=LZW, TILED=YES for GTiff).
func CreationOption(opts ...string) interface {
	CombineOption
} {
	return creationOpt{opts}
}

type progressOpt struct {
	fn ProgressFn
}

func (o progressOpt) setCombineOpt(co *combineOpts) {
	co.progress = o.fn
}

func (o progressOpt) setValueCountOpt(vo *valueCountOpts) {
	vo.progress = o.fn
}

// Progress installs fn as the progress callback of the scan. fn is called
// once per processed row with the completion fraction in [0,1].
func Progress(fn ProgressFn) interface {
	CombineOption
	ValueCountOption
} {
	return progressOpt{fn}
}

type warningOpt struct {
	fn func(err error)
}

func (o warningOpt) setCombineOpt(co *combineOpts) {
	co.warning = o.fn
}

// OnWarning installs fn as the receiver of non-fatal warnings, i.e. failures
// that leave the combination result numerically valid but degraded (a
// geotransform or spatial reference that could not be copied onto the output
// raster). When no handler is set such warnings are silently dropped.
func OnWarning(fn func(err error)) interface {
	CombineOption
} {
	return warningOpt{fn}
}
