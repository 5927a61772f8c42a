package cpp

import (
	"strings"

	"github.com/openmpp/ompc/internal/symtab"
)

// emitCheckTime writes the check_time member: it raises a structured
// simulation exception, carrying the entity id, simulation member,
// combined seed, and global time, if an operation would move the
// entity's clock backwards (spec.md §4.6).
func (e *Emitter) emitCheckTime(out *strings.Builder, ent *symtab.EntitySymbol) {
	out.WriteString("    // Check that argument is not in the past of this entity, else throw a run-time exception.\n")
	out.WriteString("    Time check_time(Time t)\n    {\n")
	out.WriteString("        if (t < time) {\n")
	out.WriteString("            std::stringstream ss;\n")
	out.WriteString("            ss << std::setprecision(std::numeric_limits<long double>::digits10 + 1)\n")
	out.WriteString("               << LT(\"error : time \") << std::showpoint << t\n")
	out.WriteString("               << LT(\" is earlier than current time \") << (double)time\n")
	out.WriteString("               << LT(\" in entity_id \") << entity_id\n")
	out.WriteString("               << LT(\" in simulation member \") << get_simulation_member()\n")
	out.WriteString("               << LT(\" with combined seed \") << get_combined_seed();\n")
	out.WriteString("            throw openm::SimulationException(ss.str().c_str());\n")
	out.WriteString("        }\n")
	out.WriteString("        return t;\n")
	out.WriteString("    }\n")
}
