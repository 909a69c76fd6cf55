package flashlog

// Iterator walks the packets of a log from Start to the tail.
type Iterator struct {
	log  *Log
	addr uint64
}

// Iter creates an Iterator at the first packet.
func (l *Log) Iter() *Iterator {
	return &Iterator{log: l, addr: l.start}
}

// Next returns the next packet. It returns ErrEmpty for an empty log and
// ErrIterationDone at the tail. A corrupt record stops the iterator at
// its address.
func (it *Iterator) Next() (Packet, error) {
	l := it.log
	if l.state != stateReady {
		return Packet{}, ErrLogNoInit
	}
	if l.tail == l.start {
		return Packet{}, ErrEmpty
	}
	if it.addr >= l.tail {
		return Packet{}, ErrIterationDone
	}
	p, err := l.readPacket(it.addr, l.tail)
	if err != nil {
		return Packet{}, err
	}
	it.addr += p.Size()
	return p, nil
}

// Addr returns the address of the next packet.
func (it *Iterator) Addr() uint64 {
	return it.addr
}

// Each calls fn for every packet until the tail or the first error.
func (l *Log) Each(fn func(Packet) error) error {
	it := l.Iter()
	for {
		p, err := it.Next()
		switch err {
		case nil:
		case ErrIterationDone, ErrEmpty:
			return nil
		default:
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}
