package main

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/adcs-fsw/rwnullspace/pkg/config"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
)

// printProjector loads a module config and prints the derived matrices
func printProjector(w io.Writer, configPath string) error {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := rwnullspace.FromFile(fileCfg)
	if err != nil {
		return err
	}
	p, err := rwnullspace.ComputeProjector(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "config %s (version %s), %d wheels, omega_gain %g\n\n",
		fileCfg.ConfigID, fileCfg.Version, cfg.NumWheels(), cfg.OmegaGain())
	fmt.Fprintf(w, "Gs =\n%v\n\n", mat.Formatted(cfg.GsMatrix(), mat.Prefix("     "), mat.Squeeze()))
	fmt.Fprintf(w, "(GGt)^-1 G =\n%v\n\n", mat.Formatted(p.PseudoInverse(), mat.Prefix("     "), mat.Squeeze()))
	fmt.Fprintf(w, "P =\n%v\n\n", mat.Formatted(p.Matrix(), mat.Prefix("     "), mat.Squeeze()))
	fmt.Fprintf(w, "cond(GGt) = %.6g\nmax|G P|  = %.3g\n", p.GramCondition(), p.Residual())
	return nil
}
