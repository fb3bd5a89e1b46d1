package shutdown

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/model"
)

// ForceSafe drives the gate and then every output inactive, straight through
// the driver. Used when the controller cannot be trusted to do it.
func ForceSafe(driver gpio.Driver, gate model.GPIOPin, outputs []model.GPIOPin) error {
	var errs []error
	if err := driver.Set(gate, false); err != nil {
		errs = append(errs, fmt.Errorf("gate gpio %d: %w", gate.Number, err))
	}
	for _, p := range outputs {
		if err := driver.Set(p, false); err != nil {
			errs = append(errs, fmt.Errorf("output gpio %d: %w", p.Number, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info().Msg("Gate and outputs deactivated")
	return nil
}

var exit = os.Exit

func ShutdownWithError(driver gpio.Driver, gate model.GPIOPin, outputs []model.GPIOPin, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	if driver != nil {
		if serr := ForceSafe(driver, gate, outputs); serr != nil {
			log.Error().Err(serr).Msg("Failed to reach safe state")
		}
	}
	exit(1)
}
