package gir

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/gtkflux/gobject-runtime/errors"
	"github.com/gtkflux/gobject-runtime/typedesc"
)

// Decode reads a GIR document. Transfer annotations are validated during
// decoding: an unknown transfer-ownership string is a parse error, not a
// silent default, because a wrong transfer tag becomes a double free or
// a leak at runtime.
func Decode(r io.Reader) (*Repository, error) {
	var repo Repository
	if err := xml.NewDecoder(r).Decode(&repo); err != nil {
		return nil, errors.ParseFailed("GIR document", err)
	}
	if err := validateTransfers(&repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// DecodeFile reads and decodes the GIR file at path.
func DecodeFile(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}
	defer f.Close()
	return Decode(f)
}

// ParseTransfer maps a transfer-ownership attribute to a descriptor
// transfer tag. The empty string defaults to none, matching the GIR
// convention for omitted annotations.
func ParseTransfer(s string) (typedesc.Transfer, error) {
	switch s {
	case "", "none":
		return typedesc.TransferNone, nil
	case "container":
		return typedesc.TransferContainer, nil
	case "full":
		return typedesc.TransferFull, nil
	}
	return typedesc.TransferNone, errors.ParseFailed(
		"transfer-ownership", fmt.Errorf("unknown transfer %q", s))
}

func validateTransfers(repo *Repository) error {
	check := func(where, s string) error {
		if _, err := ParseTransfer(s); err != nil {
			return errors.ParseFailed(where, fmt.Errorf("unknown transfer %q", s))
		}
		return nil
	}
	checkParams := func(where string, ps *Parameters) error {
		if ps == nil {
			return nil
		}
		if ps.Instance != nil {
			if err := check(where, ps.Instance.Transfer); err != nil {
				return err
			}
		}
		for i := range ps.Params {
			if err := check(where, ps.Params[i].Transfer); err != nil {
				return err
			}
		}
		return nil
	}
	checkReturn := func(where string, rv *ReturnValue) error {
		if rv == nil {
			return nil
		}
		return check(where, rv.Transfer)
	}

	for ni := range repo.Namespaces {
		ns := &repo.Namespaces[ni]
		for i := range ns.Functions {
			f := &ns.Functions[i]
			where := ns.Name + "." + f.Name
			if err := checkParams(where, f.Parameters); err != nil {
				return err
			}
			if err := checkReturn(where, f.Return); err != nil {
				return err
			}
		}
		for ci := range ns.Classes {
			cls := &ns.Classes[ci]
			for i := range cls.Methods {
				m := &cls.Methods[i]
				where := ns.Name + "." + cls.Name + "." + m.Name
				if err := checkParams(where, m.Parameters); err != nil {
					return err
				}
				if err := checkReturn(where, m.Return); err != nil {
					return err
				}
			}
			for i := range cls.Constructors {
				f := &cls.Constructors[i]
				where := ns.Name + "." + cls.Name + "." + f.Name
				if err := checkParams(where, f.Parameters); err != nil {
					return err
				}
				if err := checkReturn(where, f.Return); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
