// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

// FindOptions returns the contiguous run of options whose number equals
// num, or nil if the packet carries none. Options are stored in ascending
// number order with repeats adjacent, so the scan stops at the first
// option with a greater number or at the end of the first matching run.
func (p *Packet) FindOptions(num uint16) []Option {
	first := -1
	count := 0
	for i := 0; i < p.NumOpts; i++ {
		if p.Opts[i].Num == num {
			if first < 0 {
				first = i
			}
			count++
			continue
		}
		if p.Opts[i].Num > num {
			break
		}
		if first >= 0 {
			break
		}
	}
	if first < 0 {
		return nil
	}
	return p.Opts[first : first+count]
}
