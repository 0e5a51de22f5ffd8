package list

// Consumer traverses list.
// It receives index and value as params, returns true to continue traversal, while returns false to break
type Consumer func(i int, v []byte) bool

// LinkedList is a double-ended list of binary-safe values, it is not concurrency safe
type LinkedList struct {
	first *node
	last  *node
	size  int
}

type node struct {
	val  []byte
	prev *node
	next *node
}

// Make creates a list holding vals in the given order
func Make(vals ...[]byte) *LinkedList {
	list := &LinkedList{}
	for _, v := range vals {
		list.Add(v)
	}
	return list
}

// Add appends val to the tail
func (list *LinkedList) Add(val []byte) {
	if list == nil {
		panic("list is nil")
	}
	n := &node{
		val: val,
	}
	if list.last == nil {
		// empty list
		list.first = n
		list.last = n
	} else {
		n.prev = list.last
		list.last.next = n
		list.last = n
	}
	list.size++
}

// PushFront makes val the new head
func (list *LinkedList) PushFront(val []byte) {
	if list == nil {
		panic("list is nil")
	}
	n := &node{
		val:  val,
		next: list.first,
	}
	if list.first == nil {
		list.last = n
	} else {
		list.first.prev = n
	}
	list.first = n
	list.size++
}

func (list *LinkedList) removeNode(n *node) {
	if n.prev == nil {
		list.first = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		list.last = n.prev
	} else {
		n.next.prev = n.prev
	}

	// for gc
	n.prev = nil
	n.next = nil

	list.size--
}

// RemoveFirst removes and returns the head, or nil if the list is empty
func (list *LinkedList) RemoveFirst() []byte {
	if list == nil {
		panic("list is nil")
	}
	if list.first == nil {
		return nil
	}
	n := list.first
	list.removeNode(n)
	return n.val
}

// RemoveLast removes and returns the tail, or nil if the list is empty
func (list *LinkedList) RemoveLast() []byte {
	if list == nil {
		panic("list is nil")
	}
	if list.last == nil {
		// empty list
		return nil
	}
	n := list.last
	list.removeNode(n)
	return n.val
}

// Len returns the number of values
func (list *LinkedList) Len() int {
	if list == nil {
		panic("list is nil")
	}
	return list.size
}

// ForEach visits values from head to tail
func (list *LinkedList) ForEach(consumer Consumer) {
	if list == nil {
		panic("list is nil")
	}
	n := list.first
	i := 0
	for n != nil {
		if !consumer(i, n.val) {
			break
		}
		i++
		n = n.next
	}
}

// Values returns all values from head to tail
func (list *LinkedList) Values() [][]byte {
	result := make([][]byte, 0, list.Len())
	list.ForEach(func(i int, v []byte) bool {
		result = append(result, v)
		return true
	})
	return result
}
