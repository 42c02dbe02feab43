// Package report delivers finished audit runs to their consumers.
//
// A Sink receives each run once, after every check has been evaluated and
// every query session released. LogSink writes structured log records,
// WriterSink renders the run as text, JSON or CSV, and MultiSink fans out
// to several sinks. Persistent history lives in the history subpackage.
//
//	sink := report.MultiSink{
//	    report.NewLogSink(logger),
//	    report.NewWriterSink(os.Stdout, report.NewJSONExporter(true)),
//	}
package report
