package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/faktorips/faktorips.base-sub009/internal/config"
	"github.com/faktorips/faktorips.base-sub009/internal/server"
	"github.com/faktorips/faktorips.base-sub009/pkg/datasource"
	"github.com/faktorips/faktorips.base-sub009/pkg/factory"
	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

func inspectCommand(c *cli.Context) error {
	cfg, log := configFrom(c)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	names := c.Args().Slice()
	if len(names) == 0 {
		for _, rc := range cfg.Repositories {
			names = append(names, rc.Name)
		}
	}

	w := c.App.Writer
	for _, name := range names {
		repo, err := a.repository(c.Context, name)
		if err != nil {
			return err
		}
		printRepository(w, repo)
	}
	return nil
}

func printRepository(w io.Writer, repo *repository.Repository) {
	contents := repo.TableOfContents()
	fmt.Fprintf(w, "repository %s (%s)\n", repo.Name(), repo.InstanceID)
	for _, ref := range repo.AllReferencedRepositories() {
		fmt.Fprintf(w, "  references %s\n", ref.Name())
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  CATEGORY\tENTRIES")
	for _, cat := range toc.Categories {
		fmt.Fprintf(tw, "  %s\t%d\n", cat, contents.Count(cat))
	}
	tw.Flush()

	products := contents.Entries(toc.ProductComponent)
	if len(products) == 0 {
		return
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  PRODUCT COMPONENT\tKIND\tVERSION\tGENERATIONS\tLATEST")
	for _, e := range products {
		latest := "-"
		if ge, err := contents.LatestGeneration(e.ObjectID); err == nil && ge != nil {
			latest = ge.ValidFrom.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%s\n",
			e.ObjectID, e.KindID, e.VersionID, contents.GenerationCount(e.ObjectID), latest)
	}
	tw.Flush()
}

func getCommand(c *cli.Context) error {
	cfg, log := configFrom(c)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := c.Context
	repo, err := a.repository(ctx, c.String("repository"))
	if err != nil {
		return err
	}
	cat, err := toc.ParseCategory(c.String("category"))
	if err != nil {
		return err
	}

	id := c.String("id")
	var obj any
	switch {
	case c.IsSet("date"):
		date, err := toc.ParseDate(c.String("date"))
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		obj, err = repo.GetExistingGenerationAt(ctx, id, date)
		if err != nil {
			return err
		}
	case c.IsSet("kind"):
		obj, err = repo.GetExistingProductComponentByKindVersion(ctx, c.String("kind"), c.String("version"))
	case id == "":
		return errors.New("one of --id or --kind is required")
	case cat == toc.EnumContent:
		obj, err = repo.GetExistingEnumContent(ctx, id)
	default:
		obj, err = repo.GetExisting(ctx, cat, id)
	}
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(render(obj))
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}

// render turns a runtime object into something YAML prints readably
func render(obj any) any {
	switch o := obj.(type) {
	case *factory.Document:
		return map[string]any{"id": o.ID(), "category": o.Entry.Category.String(), "fields": o.Fields}
	case *factory.GenerationDocument:
		return map[string]any{
			"productComponent": o.ProductComponentID(),
			"validFrom":        o.ValidFrom().Format(time.DateOnly),
			"fields":           o.Fields,
		}
	case *factory.TableDocument:
		return map[string]any{"id": o.ID(), "columns": o.Columns, "rows": o.Rows, "indexed": o.Indexed()}
	default:
		return fmt.Sprintf("%v", obj)
	}
}

func importCommand(c *cli.Context) error {
	cfg, log := configFrom(c)
	rc, ok := cfg.Repository(c.String("repository"))
	if !ok {
		return fmt.Errorf("unknown repository %q", c.String("repository"))
	}
	if rc.Backend != config.BackendBadger {
		return fmt.Errorf("repository %s uses the %s backend; import needs %s", rc.Name, rc.Backend, config.BackendBadger)
	}

	from, err := datasource.OpenDir(c.String("from"))
	if err != nil {
		return err
	}
	defer from.Close()

	names, err := from.Walk()
	if err != nil {
		return err
	}
	resources := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := datasource.ReadAll(c.Context, from, name)
		if err != nil {
			return err
		}
		resources[name] = data
	}

	dst, err := datasource.OpenBadger(rc.DataDir, false, log)
	if err != nil {
		return err
	}
	defer dst.Close()
	if err := dst.PutAll(c.Context, resources); err != nil {
		return err
	}

	log.Info("Imported resources").
		Str("repository", rc.Name).
		Str("from", from.Dir()).
		Int("resources", len(names)).
		Send()
	fmt.Fprintf(c.App.Writer, "imported %d resources into %s\n", len(names), rc.Name)
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, log := configFrom(c)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Preload.Enabled || c.Bool("preload") {
		if err := a.preload(ctx); err != nil {
			log.Warn("Preload finished with errors").Err(err).Send()
		}
	}

	addr := cfg.Metrics.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	if !cfg.Metrics.Enabled && !c.IsSet("addr") {
		log.Info("Observability server disabled").Int("repositories", len(a.ordered)).Send()
		<-ctx.Done()
		return nil
	}

	srv := server.NewObservabilityServer(addr, a.registry, a.ordered, log)
	done := make(chan struct{})
	defer close(done)
	go a.metrics.UpdateUptime(done, cfg.Metrics.UptimeInterval)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
