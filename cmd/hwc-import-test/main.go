package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/BeatGlow/hwc"
	"github.com/BeatGlow/hwc/draw"
	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/framebuffer"
	"github.com/BeatGlow/hwc/gralloc"
	"github.com/BeatGlow/hwc/planner"
)

func main() {
	var (
		c     = defaultConfig
		flags = c
	)
	configFlag := flag.String("config", os.Getenv("HWC_CONFIG"), "YAML configuration file")
	flag.StringVar(&flags.Device, "device", c.Device, "DRM device")
	flag.IntVar(&flags.Width, "width", c.Width, "Buffer width")
	flag.IntVar(&flags.Height, "height", c.Height, "Buffer height")
	flag.StringVar(&flags.Format, "format", c.Format, "Pixel format")
	flag.IntVar(&flags.Count, "count", c.Count, "Number of buffers")
	flag.IntVar(&flags.Planes, "planes", c.Planes, "Number of planes to plan for (default: one per buffer)")
	flag.StringVar(&flags.Importer, "importer", c.Importer, "Importer kind")
	flag.StringVar(&flags.Preview, "preview", c.Preview, "Framebuffer device to copy the first buffer to")
	flag.BoolVar(&flags.Debug, "debug", c.Debug, "Enable debug logging")
	flag.Parse()

	if err := c.loadEnv(); err != nil {
		fatal(err)
	}
	if *configFlag != "" {
		if err := c.loadFile(*configFlag); err != nil {
			fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			c.Device = flags.Device
		case "width":
			c.Width = flags.Width
		case "height":
			c.Height = flags.Height
		case "format":
			c.Format = flags.Format
		case "count":
			c.Count = flags.Count
		case "planes":
			c.Planes = flags.Planes
		case "importer":
			c.Importer = flags.Importer
		case "preview":
			c.Preview = flags.Preview
		case "debug":
			c.Debug = flags.Debug
		}
	})
	if err := c.validate(); err != nil {
		fatal(err)
	}

	log := logrus.New()
	if c.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(c, log); err != nil {
		fatal(err)
	}
}

func run(c config, log logrus.FieldLogger) error {
	format, err := drm.ParseFourcc(c.Format)
	if err != nil {
		return err
	}
	kind, err := hwc.ParseKind(c.Importer)
	if err != nil {
		return err
	}

	// GEM handles are per file, so the allocator and the importer each get their own.
	allocDev, err := drm.Open(c.Device)
	if err != nil {
		return err
	}
	defer allocDev.Close()
	dev, err := drm.Open(c.Device)
	if err != nil {
		return err
	}
	defer dev.Close()

	version, err := dev.Version()
	if err != nil {
		return err
	}
	fmt.Printf("using device: %s: %s\n", dev, version)

	if prime, err := dev.Capability(drm.CapPrime); err != nil {
		return err
	} else if prime&drm.PrimeCapImport == 0 {
		return fmt.Errorf("%s does not support prime import", dev)
	}

	var (
		allocator = gralloc.NewDumbAllocator(allocDev, log)
		modules   = gralloc.NewRegistry()
	)
	if err = modules.Register(gralloc.HardwareModuleID, func() (gralloc.Module, error) {
		return allocator, nil
	}); err != nil {
		return err
	}
	defer func() {
		if err := modules.Halt(); err != nil {
			log.WithError(err).Error("failed to halt allocator modules")
		}
	}()

	importer, err := hwc.New(dev, &hwc.Config{
		Kind:    kind,
		Modules: modules,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	fmt.Printf("using importer: %s\n", importer)

	var (
		layers []planner.Layer
		first  image.Image
	)
	defer func() {
		for _, layer := range layers {
			bo := layer.Buffer
			report := importer.Release(&bo)
			fmt.Printf("released buffer %d: %d handles closed", layer.Index, report.Closed)
			if err := report.Err(); err != nil {
				fmt.Printf(", errors: %v", err)
			}
			fmt.Println()
		}
	}()

	for i := 0; i < c.Count; i++ {
		h, err := allocator.Allocate(uint32(c.Width), uint32(c.Height), format, gralloc.UsageHWFB|gralloc.UsageHWComposer|gralloc.UsageSWWriteOften)
		if err != nil {
			return err
		}
		img, err := label(allocator, h, fmt.Sprintf("buffer %d %s", i, format.Name()))
		if err != nil {
			return err
		}
		if first == nil {
			first = img
		}

		bo, err := importer.Import(h)
		if err != nil {
			if !bo.IsZero() {
				// Still holds a GEM handle.
				layers = append(layers, planner.Layer{Index: i, Buffer: bo})
			}
			return err
		}
		fmt.Printf("imported buffer %d: %s\n", i, bo)
		layers = append(layers, planner.Layer{Index: i, Buffer: bo})
	}

	planes := c.Planes
	if planes == 0 {
		planes = c.Count
	}
	comp, err := planner.New().Provision(layers, syntheticPlanes(planes))
	if err != nil {
		return err
	}
	for _, a := range comp.Assignments {
		fmt.Printf("layer %d -> %s (fb %d)\n", a.Layer.Index, a.Plane, a.Layer.Buffer.FbID)
	}
	if comp.PrecompPlane != nil {
		fmt.Printf("%d layers precomposited -> %s\n", len(comp.Precomp), comp.PrecompPlane)
	}

	if c.Preview != "" {
		return preview(c.Preview, first)
	}
	return nil
}

// preview copies img to a framebuffer device.
func preview(name string, img image.Image) error {
	fb, err := framebuffer.Open(name)
	if err != nil {
		return err
	}
	defer fb.Close()

	fmt.Printf("preview on %s\n", fb)
	draw.Draw(fb, fb.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}

// label draws colour bars and text into the buffer.
func label(allocator *gralloc.DumbAllocator, h gralloc.Handle, text string) (image.Image, error) {
	img, err := allocator.Map(h)
	if err != nil {
		return nil, err
	}
	draw.Bars(img)

	size := float64(img.Bounds().Dy()) / 12
	if _, err = draw.Text(img, image.Pt(int(size), int(size*2)), size, color.White, text); err != nil {
		return nil, err
	}
	return img, nil
}

func syntheticPlanes(n int) []planner.Plane {
	planes := make([]planner.Plane, n)
	for i := range planes {
		planes[i].ID = uint32(i + 1)
		planes[i].Type = planner.PlaneOverlay
	}
	if n > 0 {
		planes[0].Type = planner.PlanePrimary
	}
	return planes
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
