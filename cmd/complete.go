package cmd

import (
	"flag"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// fileFlags complete with file names.
var fileFlags = map[string]string{
	"ledger":   "*.jsonl",
	"settings": "*.toml",
}

// Completion returns the shell completion of the application: every command
// with its flags, and the global flags.
func Completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(global),
	}
	for _, c := range Commands {
		f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(f)
		root.Sub[c.Name()] = &complete.Command{Flags: flags(f)}
	}
	return root
}

func flags(f *flag.FlagSet) map[string]complete.Predictor {
	m := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		switch {
		case fileFlags[fl.Name] != "":
			m[fl.Name] = predict.Files(fileFlags[fl.Name])
		case fl.Name == "p" || fl.Name == "by":
			m[fl.Name] = predict.Set{"day", "week", "month", "quarter", "year"}
		case fl.Name == "method":
			m[fl.Name] = predict.Set{"average", "fifo"}
		case fl.Name == "k":
			m[fl.Name] = predict.Set{"tag", "payee"}
		case fl.Name == "kind":
			m[fl.Name] = predict.Set{"cash", "transfer", "refund", "security", "security-transfer"}
		case isBool(fl):
			m[fl.Name] = predict.Nothing
		default:
			m[fl.Name] = predict.Something
		}
	})
	return m
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
