// Package app bootstraps wasdeploy: it initializes logging, loads the
// configuration file and sets up the container for the configured kind.
//
// Commands use Application.Run to get a started container for the length
// of one operation:
//
//	application, err := app.NewApplication(app.NewConfig(debug, configPath))
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx, func(ctx context.Context, c container.Container) error {
//	    return c.Undeploy(ctx, req)
//	})
//
// Logging starts at info (or debug with the --debug flag) so that
// configuration problems are visible, and is re-initialized with the
// configured logLevel once the file has been read.
package app
