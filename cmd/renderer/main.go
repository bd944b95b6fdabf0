package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	rpprof "runtime/pprof"
	"syscall"
	"time"

	"weekend/camera"
	"weekend/demoscene"
	"weekend/geometry"
	"weekend/imagesink"
	"weekend/rendermetrics"
	"weekend/sampleimage"
	"weekend/statusz"

	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"
	"golang.org/x/time/rate"
	googleopt "google.golang.org/api/option"
)

var (
	output     = flag.String("output", imagesink.Stdout, "Where to write the P3 image: '-' for stdout, a gs://bucket/object path, or a local file")
	checkpoint = flag.String("checkpoint", "", "Optional sample file (local or gs://) that accumulates raw samples so renders can be resumed")
	resume     = flag.Bool("resume", false, "Should we re-open the checkpoint to add more samples?")
	sceneName  = flag.String("scene", "final", "Scene to render")
	seed       = flag.Int64("seed", 0, "Seed for scene construction and sampling; 0 picks one from the clock")
	workers    = flag.Int("workers", -1, "Rows rendered concurrently; negative means one per CPU")

	imageWidth      = flag.Int("image-width", 0, "Image width in pixels (overrides the scene)")
	aspectRatio     = flag.Float64("aspect-ratio", 0, "Ideal width/height ratio (overrides the scene)")
	samplesPerPixel = flag.Int("samples-per-pixel", 0, "Samples per pixel (overrides the scene)")
	maxDepth        = flag.Int("max-depth", 0, "Maximum ray bounces (overrides the scene)")
	vfov            = flag.Float64("vfov", 0, "Vertical field of view in degrees (overrides the scene)")
	defocusAngle    = flag.Float64("defocus-angle", 0, "Defocus cone angle in degrees (overrides the scene)")
	focusDist       = flag.Float64("focus-dist", 0, "Distance to the plane of perfect focus (overrides the scene)")

	debugListen          = flag.String("debug-listen", "", "Server address:port for debug endpoint; empty disables it.")
	enableMetrics        = flag.Bool("enable-metrics", false, "Export render metrics to Cloud Monitoring?")
	monitoring           = flag.Bool("monitoring", false, "Export traces to Cloud Trace?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 0.01, "What ratio of traces should be exported?")

	cpuprofile = flag.String("cpu-profile", "", "write cpu profile to `file`")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")

	glog.Infof("flags:")
	flag.VisitAll(func(f *flag.Flag) {
		glog.Infof("%s: %q", f.Name, f.Value.String())
	})

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Exitf("Could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := rpprof.StartCPUProfile(f); err != nil {
			glog.Exitf("Could not start CPU profile: %v", err)
		}
		defer rpprof.StopCPUProfile()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
		<-signalCh
		glog.Infof("Interrupted; abandoning render")
		cancel()
	}()

	if err := do(ctx); err != nil {
		glog.Errorf("Error: %v", err)
		glog.Flush()
		rpprof.StopCPUProfile()
		os.Exit(1)
	}
}

func do(ctx context.Context) error {
	if *monitoring {
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			return fmt.Errorf("while installing Cloud Trace OpenTelemetry trace pipeline: %w", err)
		}
		defer traceShutdown()
	}

	metrics := rendermetrics.New(*sceneName)
	if *enableMetrics {
		if err := metrics.RegisterMetrics(); err != nil {
			return fmt.Errorf("while registering metrics views: %w", err)
		}

		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         *monitoringProject,
			MetricPrefix:      "weekend",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while creating Stackdriver exporter: %w", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			return fmt.Errorf("while starting metrics exporter: %w", err)
		}
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()
	}

	status := statusz.New()
	if *debugListen != "" {
		startDebugServer(*debugListen, status)
	}

	var gcs *storage.Client
	if imagesink.IsGCS(*output) || imagesink.IsGCS(*checkpoint) {
		var err error
		gcs, err = storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
		if err != nil {
			return fmt.Errorf("while creating GCS client: %w", err)
		}
		defer gcs.Close()
	}
	sink := imagesink.New(gcs)

	build, err := demoscene.Lookup(*sceneName)
	if err != nil {
		return err
	}

	renderSeed := *seed
	if renderSeed == 0 && *checkpoint != "" {
		// The scene and the sample streams are both derived from the seed, so
		// a checkpoint is only resumable under the same seed.
		return fmt.Errorf("--seed is required with --checkpoint")
	}
	if renderSeed == 0 {
		renderSeed = time.Now().UnixNano()
	}
	glog.Infof("Using seed %d", renderSeed)

	world, cam := build(rand.New(rand.NewSource(renderSeed)))
	applyCameraFlags(cam)
	if err := cam.Initialize(); err != nil {
		return fmt.Errorf("while configuring camera: %w", err)
	}

	progress := newProgressReporter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), rate.Every(100*time.Millisecond))
	opts := &camera.RenderOptions{
		Seed:    renderSeed,
		Workers: *workers,
		Progress: func(done, total int) {
			status.SetProgress(done, total)
			progress.Report(done, total)
		},
		Metrics: metrics,
	}

	if *checkpoint == "" {
		if err := renderDirect(ctx, sink, cam, world, opts); err != nil {
			return err
		}
		progress.Done()
		return nil
	}

	img, err := loadCheckpoint(ctx, sink, cam)
	if err != nil {
		return err
	}

	if err := renderCheckpoint(ctx, sink, *checkpoint, cam, world, img, opts); err != nil {
		return err
	}
	progress.Done()

	out, err := sink.Create(ctx, *output)
	if err != nil {
		return fmt.Errorf("while opening output: %w", err)
	}
	if err := cam.WriteImage(out, img); err != nil {
		out.Close()
		return fmt.Errorf("while writing image: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("while closing output: %w", err)
	}

	return nil
}

func renderDirect(ctx context.Context, sink *imagesink.Sink, cam *camera.Camera, world geometry.Geometry, opts *camera.RenderOptions) error {
	out, err := sink.Create(ctx, *output)
	if err != nil {
		return fmt.Errorf("while opening output: %w", err)
	}

	if err := cam.Render(ctx, world, out, opts); err != nil {
		out.Close()
		return fmt.Errorf("while rendering: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("while closing output: %w", err)
	}
	return nil
}

// applyCameraFlags overrides the scene's camera with any flags given on the
// command line.
func applyCameraFlags(cam *camera.Camera) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "image-width":
			cam.ImageWidth = *imageWidth
		case "aspect-ratio":
			cam.AspectRatio = *aspectRatio
		case "samples-per-pixel":
			cam.SamplesPerPixel = *samplesPerPixel
		case "max-depth":
			cam.MaxDepth = *maxDepth
		case "vfov":
			cam.VFOV = *vfov
		case "defocus-angle":
			cam.DefocusAngle = *defocusAngle
		case "focus-dist":
			cam.FocusDist = *focusDist
		}
	})
}

func loadCheckpoint(ctx context.Context, sink *imagesink.Sink, cam *camera.Camera) (*sampleimage.Image, error) {
	exists, err := sink.Exists(ctx, *checkpoint)
	if err != nil {
		return nil, fmt.Errorf("while checking for checkpoint: %w", err)
	}

	if !*resume {
		// Refuse to blow away hours of render time.
		if exists {
			return nil, fmt.Errorf("resumption not requested, but checkpoint %q exists", *checkpoint)
		}
		return sampleimage.New(cam.ImageHeight(), cam.ImageWidth), nil
	}

	if !exists {
		return nil, fmt.Errorf("resumption requested, but checkpoint %q does not exist", *checkpoint)
	}

	in, err := sink.Open(ctx, *checkpoint)
	if err != nil {
		return nil, fmt.Errorf("while opening checkpoint: %w", err)
	}
	defer in.Close()

	img, err := sampleimage.Read(in)
	if err != nil {
		return nil, fmt.Errorf("while reading checkpoint: %w", err)
	}

	if img.RowSize != cam.ImageHeight() {
		return nil, fmt.Errorf("resumption requested, but the checkpoint doesn't have the right number of rows (got %d, want %d)", img.RowSize, cam.ImageHeight())
	}
	if img.ColSize != cam.ImageWidth {
		return nil, fmt.Errorf("resumption requested, but the checkpoint doesn't have the right number of columns (got %d, want %d)", img.ColSize, cam.ImageWidth)
	}

	glog.Infof("Resuming from checkpoint with %d samples", img.TotalSamples())
	return img, nil
}

// renderCheckpoint tops up img and saves it as the checkpoint name.  An
// interrupted render still saves the rows it finished.
func renderCheckpoint(ctx context.Context, sink *imagesink.Sink, name string, cam *camera.Camera, world geometry.Geometry, img *sampleimage.Image, opts *camera.RenderOptions) error {
	renderErr := cam.RenderSamples(ctx, world, img, opts)
	if renderErr != nil && !errors.Is(renderErr, context.Canceled) {
		return fmt.Errorf("while rendering: %w", renderErr)
	}

	// The GCS writer aborts when its context is cancelled, so the save cannot
	// use ctx.
	if err := saveCheckpoint(context.Background(), sink, name, img); err != nil {
		return err
	}

	if renderErr != nil {
		glog.Infof("Render interrupted; checkpoint %q holds %d samples", name, img.TotalSamples())
		return fmt.Errorf("while rendering: %w", renderErr)
	}
	return nil
}

func saveCheckpoint(ctx context.Context, sink *imagesink.Sink, name string, img *sampleimage.Image) error {
	out, err := sink.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("while opening checkpoint for writing: %w", err)
	}

	if err := sampleimage.Write(img, out); err != nil {
		out.Close()
		return fmt.Errorf("while writing checkpoint: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("while closing checkpoint: %w", err)
	}
	return nil
}

func startDebugServer(addr string, status *statusz.Handler) {
	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", status)
	debugServeMux.Handle("/statusz", status)
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    addr,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			glog.Errorf("Debug server died: %v", err)
		}
	}()
}
