// Package rowmatrix stores the augmented matrix [A|b] as an immutable,
// partitioned collection of rows and runs data-parallel work over it.
//
// A Session is the explicit execution context: it bounds partition
// parallelism, carries the logger, and owns the resource controller that
// throttles source reads and accounts cached partitions. Nothing here is
// global, so tests run against an in-process session.
//
// Partition work is pure. Reductions are summed in partition order after all
// partitions finish, so results do not depend on completion order.
package rowmatrix
