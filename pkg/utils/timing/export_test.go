package timing

var NewWithClock = newWithClock
