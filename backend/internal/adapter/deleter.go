package adapter

import (
	"context"
	"log"

	"fuzz-adapter/backend/internal/driver"
)

type deleter struct {
	target driver.Target
	state  *DocumentState
	nav    *navigator
	sel    *extender
	logger *log.Logger
}

func (d *deleter) delete(ctx context.Context, index, length int) error {
	d.logger.Printf("deleting %d at %d", length, index)
	if err := d.nav.moveTo(ctx, index); err != nil {
		return err
	}
	if err := d.sel.extend(ctx, length); err != nil {
		return err
	}
	if err := d.target.SendKeys(ctx, driver.Delete); err != nil {
		return driverErr("delete selection", err)
	}
	d.state.DocLength -= length
	d.state.CursorPos -= length
	return nil
}
