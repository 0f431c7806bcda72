// Command jparque is a minimal interactive demo wiring a B+Tree engine and
// a columnar store to stdin commands. It is not part of the core build.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"jparque/btree"
	"jparque/columnstore"
	"jparque/record"
	"jparque/schema"
)

func main() {
	logger := logrus.StandardLogger()

	tree, err := btree.Open("jparque.btree", btree.Options{Logger: logger})
	if err != nil {
		log.Fatalf("open btree: %v", err)
	}
	defer tree.Close()

	cols, err := columnstore.Open(".", "jparque", demoSchema(), columnstore.Options{Logger: logger})
	if err != nil {
		log.Fatalf("open columnstore: %v", err)
	}
	defer cols.Close()

	fmt.Println("jparque demo — commands: put <key> <field>=<value> [...], get <key>, scan <start> <end>, del <key>,")
	fmt.Println("                         cput <key> <field>=<value> [...], cget <key>, cscan <start> <end>, cdel <key>, exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("jparque> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			break
		}
		runCommand(tree, cols, line)
	}
}

func demoSchema() *schema.MessageType {
	return schema.NewMessageType("demo",
		schema.NewField(0, "value", schema.TypeBinary, schema.Optional).WithOriginalType(schema.UTF8),
	)
}

func runCommand(tree *btree.BTreeEngine, cols *columnstore.ColumnStore, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "put":
		if len(fields) < 3 {
			fmt.Println("usage: put <key> <field>=<value> [...]")
			return
		}
		value := parseFieldAssignments(fields[2:])
		if err := tree.Write([]byte(fields[1]), value); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <key>")
			return
		}
		value, ok, err := tree.Read([]byte(fields[1]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if !ok {
			fmt.Println("(not found)")
			return
		}
		printFields(value)
	case "scan":
		if len(fields) != 3 {
			fmt.Println("usage: scan <start> <end>")
			return
		}
		results, err := tree.Scan([]byte(fields[1]), []byte(fields[2]), nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		for _, r := range results {
			fmt.Printf("%s: ", r.Key)
			printFields(r.Value)
		}
	case "del":
		if len(fields) != 2 {
			fmt.Println("usage: del <key>")
			return
		}
		if err := tree.Delete([]byte(fields[1])); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	case "cput":
		if len(fields) < 3 {
			fmt.Println("usage: cput <key> <field>=<value> [...]")
			return
		}
		value := parseFieldAssignments(fields[2:])
		if err := cols.Write([]byte(fields[1]), value); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	case "cget":
		if len(fields) != 2 {
			fmt.Println("usage: cget <key>")
			return
		}
		value, ok, err := cols.Read([]byte(fields[1]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if !ok {
			fmt.Println("(not found)")
			return
		}
		printFields(value)
	case "cscan":
		if len(fields) != 3 {
			fmt.Println("usage: cscan <start> <end>")
			return
		}
		results, err := cols.Scan([]byte(fields[1]), []byte(fields[2]), nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		for _, r := range results {
			fmt.Printf("%s: ", r.Key)
			printFields(r.Value)
		}
	case "cdel":
		if len(fields) != 2 {
			fmt.Println("usage: cdel <key>")
			return
		}
		if err := cols.Delete([]byte(fields[1])); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

func parseFieldAssignments(assignments []string) record.Fields {
	value := make(record.Fields, len(assignments))
	for _, assignment := range assignments {
		name, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			continue
		}
		value[name] = coerceValue(raw)
	}
	return value
}

func coerceValue(raw string) record.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return record.Int64Value(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return record.Float64Value(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return record.BoolValue(b)
	}
	return record.StringValue(raw)
}

func printFields(value record.Fields) {
	for name, v := range value {
		fmt.Printf("%s=%v ", name, v.Interface())
	}
	fmt.Println()
}
