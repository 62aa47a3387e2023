// Package utils holds the CLI plumbing shared by mergewatch commands: the
// Viper-backed ConfigurationLoader, the zap LoggerFactory, the command context
// accessor and a flushing output writer.
package utils
