package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"launchpad/internal/curve"
)

// admin runs an owner-only configuration change. fn must validate before it
// mutates; on error the previous configuration is restored.
func (e *Engine) admin(setting string, caller common.Address, fn func() error) error {
	release, err := e.enter()
	if err != nil {
		return fmt.Errorf("set %s: %w", setting, err)
	}
	defer release()

	if caller != e.cfg.Owner {
		return fmt.Errorf("set %s by %s: %w", setting, caller.Hex(), ErrUnauthorized)
	}
	prev := e.cfg
	if err := fn(); err != nil {
		e.cfg = prev
		return fmt.Errorf("set %s: %w", setting, err)
	}
	e.logger.Info("config updated", zap.String("setting", setting), zap.String("owner", e.cfg.Owner.Hex()))
	return nil
}

func checkFeeRate(rate uint64) error {
	if rate > curve.MaxFeeRate {
		return fmt.Errorf("%w: rate %d above %d", ErrInvalidInput, rate, curve.MaxFeeRate)
	}
	return nil
}

func (e *Engine) SetPaused(caller common.Address, paused bool) error {
	return e.admin("paused", caller, func() error {
		e.cfg.Paused = paused
		return nil
	})
}

func (e *Engine) SetFeeRate(caller common.Address, rate uint64) error {
	return e.admin("fee rate", caller, func() error {
		if err := checkFeeRate(rate); err != nil {
			return err
		}
		e.cfg.FeeRate = rate
		return nil
	})
}

func (e *Engine) SetGraduationFeeRate(caller common.Address, rate uint64) error {
	return e.admin("graduation fee rate", caller, func() error {
		if err := checkFeeRate(rate); err != nil {
			return err
		}
		e.cfg.GraduationFeeRate = rate
		return nil
	})
}

func (e *Engine) SetCreationFee(caller common.Address, fee *uint256.Int) error {
	return e.admin("creation fee", caller, func() error {
		e.cfg.CreationFee = *fee
		return nil
	})
}

// SetInitVirtualEthReserve changes the virtual currency new pools open with and
// recomputes K and the graduation threshold from it.
func (e *Engine) SetInitVirtualEthReserve(caller common.Address, reserve *uint256.Int) error {
	return e.admin("init virtual eth reserve", caller, func() error {
		if reserve.IsZero() {
			return fmt.Errorf("%w: zero reserve", ErrInvalidInput)
		}
		if err := e.recomputeCurve(reserve); err != nil {
			return err
		}
		e.cfg.InitVirtualEthReserve = *reserve
		return nil
	})
}

func (e *Engine) SetFeeRecipient(caller, recipient common.Address) error {
	return e.admin("fee recipient", caller, func() error {
		e.cfg.FeeRecipient = recipient
		return nil
	})
}

// SetMigrator replaces the migration strategy used by future graduations.
func (e *Engine) SetMigrator(caller common.Address, migrator Migrator) error {
	return e.admin("migrator", caller, func() error {
		if migrator == nil || migrator.Address() == (common.Address{}) {
			return fmt.Errorf("%w: migrator with non-zero address required", ErrInvalidInput)
		}
		e.migrator = migrator
		return nil
	})
}

func (e *Engine) TransferOwnership(caller, owner common.Address) error {
	return e.admin("owner", caller, func() error {
		if owner == (common.Address{}) {
			return fmt.Errorf("%w: zero owner", ErrInvalidInput)
		}
		e.cfg.Owner = owner
		return nil
	})
}
