package config

// Validate checks the settings the configured run actually needs and returns
// a *ConfigError naming the first one that is missing or invalid.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyLocal, StrategyRemote:
	default:
		return invalid(EnvName(KeyStrategy), "unknown strategy %q (want %s or %s)", c.Strategy, StrategyLocal, StrategyRemote)
	}
	if c.Strategy == StrategyLocal && c.SkipLoad {
		return invalid(EnvName(KeyStrategy), "--skip-load only applies to the %s strategy", StrategyRemote)
	}

	if err := c.validateSource(); err != nil {
		return err
	}
	if c.NeedsWarehouse() {
		if err := c.validateWarehouse(); err != nil {
			return err
		}
	}
	if c.Strategy == StrategyRemote {
		if err := c.validateStorage(); err != nil {
			return err
		}
	}
	if c.Notify {
		if err := c.validateSMTP(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	s := c.Source
	if s.LandingURL == "" {
		return missing(EnvName(KeyLandingURL))
	}
	if s.AnchorPrefix == "" {
		return missing(EnvName(KeyAnchorPrefix))
	}
	if s.MemberPrefix == "" {
		if _, ok := MemberPrefix(c.Dataset); !ok {
			return invalid(EnvName(KeyDataset), "unknown dataset %q (want %s or %s)", c.Dataset, DatasetNPI, DatasetEndpoint)
		}
		return missing(EnvName(KeyMemberPrefix))
	}
	if s.ConnectTimeout <= 0 {
		return invalid(EnvName(KeyConnectTimeout), "must be positive")
	}
	if s.ReadTimeout <= 0 {
		return invalid(EnvName(KeyReadTimeout), "must be positive")
	}
	return nil
}

func (c *Config) validateWarehouse() error {
	w := c.Warehouse

	switch w.Driver {
	case DriverSnowflake:
		for _, req := range []struct{ key, val string }{
			{KeySFUser, w.User},
			{KeySFPassword, w.Password},
			{KeySFAccount, w.Account},
			{KeySFDatabase, w.Database},
			{KeySFSchema, w.Schema},
		} {
			if req.val == "" {
				return missing(EnvName(req.key))
			}
		}
	case DriverSQLServer:
		if w.ConnString == "" {
			return missing(EnvName(KeyConnString))
		}
	case DriverDuckDB:
		if w.DuckDBPath == "" {
			return missing(EnvName(KeyDuckDBPath))
		}
	default:
		return invalid(EnvName(KeyDriver), "unknown driver %q", w.Driver)
	}

	if c.UsesProcedure() {
		if !ValidTableName(w.Procedure) {
			return invalid(EnvName(KeyProcedure), "%q is not a procedure identifier", w.Procedure)
		}
		if w.Table != "" && !ValidTableName(w.Table) {
			return invalid(EnvName(KeyTable), "%q is not a table identifier", w.Table)
		}
		return nil
	}

	if w.Table == "" {
		return missing(EnvName(KeyTable))
	}
	if !ValidTableName(w.Table) {
		return invalid(EnvName(KeyTable), "%q is not a table identifier", w.Table)
	}

	if c.Strategy == StrategyRemote {
		// Loading straight from the bucket needs a Snowflake external stage
		// that points at it.
		if w.Driver != DriverSnowflake {
			return invalid(EnvName(KeyDriver), "the %s strategy loads through a procedure or a Snowflake external stage", StrategyRemote)
		}
		if w.ExternalStage == "" {
			return missing(EnvName(KeyExternalStage))
		}
		if !ValidTableName(w.ExternalStage) {
			return invalid(EnvName(KeyExternalStage), "%q is not a stage identifier", w.ExternalStage)
		}
	} else if w.Driver == DriverSnowflake && !ValidTableName(w.Stage) {
		return invalid(EnvName(KeyStage), "%q is not a stage identifier", w.Stage)
	}
	return nil
}

func (c *Config) validateStorage() error {
	s := c.Storage
	for _, req := range []struct{ key, val string }{
		{KeyAccessKey, s.AccessKeyID},
		{KeySecretKey, s.SecretAccessKey},
		{KeyRegion, s.Region},
		{KeyBucket, s.Bucket},
	} {
		if req.val == "" {
			return missing(EnvName(req.key))
		}
	}
	if s.PartSize < DefaultPartSize {
		return invalid(EnvName(KeyPartSize), "must be at least %d bytes", DefaultPartSize)
	}
	if s.Concurrency < 1 {
		return invalid(EnvName(KeyConcurrency), "must be at least 1")
	}
	return nil
}

func (c *Config) validateSMTP() error {
	s := c.SMTP
	for _, req := range []struct{ key, val string }{
		{KeySMTPServer, s.Server},
		{KeySMTPUser, s.User},
		{KeySMTPPassword, s.Password},
		{KeySMTPRecipient, s.Recipient},
	} {
		if req.val == "" {
			return missing(EnvName(req.key))
		}
	}
	if s.Port <= 0 {
		return invalid(EnvName(KeySMTPPort), "must be positive")
	}
	return nil
}
